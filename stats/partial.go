package stats

import (
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Partial is the aggregate carried for one key between map, combine and
// reduce. Merge is associative and commutative, so any split of the values
// into partial folds gives the same result.
type Partial struct {
	Sum   value.Value
	Count int64
	Zeros int64

	// Min and Max are only tracked for standard keys.
	Min        value.Value
	Max        value.Value
	HasExtrema bool
}

// Observe wraps a single value.
func Observe(v value.Value, extrema bool) Partial {
	p := Partial{Sum: v, Count: 1}
	if v.IsZero() {
		p.Zeros = 1
	}
	if extrema {
		p.Min, p.Max, p.HasExtrema = v, v, true
	}
	return p
}

// Empty reports whether p has seen no values.
func (p Partial) Empty() bool { return p.Count == 0 }

// Merge folds o into p. Sums of different kinds are a TypeMismatchError.
func (p Partial) Merge(o Partial) (Partial, error) {
	if p.Empty() {
		return o, nil
	}
	if o.Empty() {
		return p, nil
	}

	sum, err := p.Sum.Add(o.Sum)
	if err != nil {
		return Partial{}, errors.Wrap(err, "merge partial sums")
	}
	out := Partial{
		Sum:        sum,
		Count:      p.Count + o.Count,
		Zeros:      p.Zeros + o.Zeros,
		HasExtrema: p.HasExtrema || o.HasExtrema,
	}

	switch {
	case p.HasExtrema && o.HasExtrema:
		if out.Min, err = p.Min.Min(o.Min); err != nil {
			return Partial{}, err
		}
		if out.Max, err = p.Max.Max(o.Max); err != nil {
			return Partial{}, err
		}
	case p.HasExtrema:
		out.Min, out.Max = p.Min, p.Max
	case o.HasExtrema:
		out.Min, out.Max = o.Min, o.Max
	}
	return out, nil
}

// MergeAll folds values left to right.
func MergeAll(values []Partial) (Partial, error) {
	var acc Partial
	for _, v := range values {
		var err error
		if acc, err = acc.Merge(v); err != nil {
			return Partial{}, err
		}
	}
	return acc, nil
}

// Mean returns Sum / Count with r applied to BigDecimal sums.
func (p Partial) Mean(r value.Rounding) (value.Value, error) {
	if p.Empty() {
		return value.Value{}, errors.NewZeroDivisionError("mean")
	}
	n, err := value.FromInt64(p.Count, p.Sum.Kind())
	if err != nil {
		return value.Value{}, err
	}
	return p.Sum.DivRound(n, r)
}
