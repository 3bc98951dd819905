package record

// Selector picks the fields of a record a mapper works on.
type Selector interface {
	Select(r Record) []Field
}

// Tracked selects the named fields that are present, in the configured order.
type Tracked []string

// Select implements Selector.
func (t Tracked) Select(r Record) []Field {
	out := make([]Field, 0, len(t))
	for _, name := range t {
		if v, ok := r.Get(name); ok {
			out = append(out, Field{Name: name, Value: v})
		}
	}
	return out
}

// All selects every field of the record.
type All struct{}

// Select implements Selector.
func (All) Select(r Record) []Field {
	return r.Fields
}
