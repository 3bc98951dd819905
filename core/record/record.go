// Package record holds the per-date feature record and its text layout:
//
//	dateKey<TAB>field1:value1, field2:value2
//
// The same layout is used for joined input records and for every text output
// of the pipeline.
package record

import (
	"strings"
	"time"

	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

const (
	keySep   = "\t"
	pairSep  = ", "
	fieldSep = ":"
)

// Field is one named value of a record.
type Field struct {
	Name  string
	Value value.Value
}

// Record is an ordered mapping of field name to value, one per date or per
// training example.
type Record struct {
	Key    string
	Fields []Field
}

// New builds a record from fields in the order given.
func New(key string, fields ...Field) Record {
	return Record{Key: key, Fields: fields}
}

// Get returns the value of the named field.
func (r Record) Get(name string) (value.Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return value.Value{}, false
}

// Set replaces the named field or appends it.
func (r *Record) Set(name string, v value.Value) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// Names lists field names in record order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Date parses the record key as a date.
func (r Record) Date() (time.Time, error) {
	return Date(r.Key)
}

// String renders the record in the text layout.
func (r Record) String() string {
	return Format(r.Key, r.Fields)
}

// Format renders key and fields as one line, without a trailing newline.
func Format(key string, fields []Field) string {
	var b strings.Builder
	b.WriteString(key)
	b.WriteString(keySep)
	for i, f := range fields {
		if i > 0 {
			b.WriteString(pairSep)
		}
		b.WriteString(f.Name)
		b.WriteString(fieldSep)
		b.WriteString(f.Value.String())
	}
	return b.String()
}

// Date parses a record key. Plain dates and date-times are accepted.
func Date(key string) (time.Time, error) {
	if v, err := value.ParseStrict(key, value.Date); err == nil {
		return v.Time(), nil
	}
	v, err := value.ParseStrict(key, value.DateTime)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "record key %q is not a date", key)
	}
	return v.Time(), nil
}
