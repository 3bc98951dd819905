// Package value implements the tagged scalar that flows through every
// map/reduce channel in the pipeline.
//
// A Value holds exactly one of seven kinds. Arithmetic is only defined between
// two values of the same kind; combining kinds is a TypeMismatchError, never a
// silent conversion, because a coerced running sum is silently wrong.
//
//	a := value.NewFloat64(2)
//	b := value.NewFloat64(3)
//	p, err := a.Mul(b) // 6.0
package value

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Kind tags the representation a Value currently holds.
type Kind uint8

const (
	Invalid Kind = iota
	Int64
	Float64
	BigInt
	BigDecimal
	String
	Date
	DateTime
)

var kindNames = [...]string{
	Invalid:    "invalid",
	Int64:      "int64",
	Float64:    "float64",
	BigInt:     "bigint",
	BigDecimal: "bigdecimal",
	String:     "string",
	Date:       "date",
	DateTime:   "datetime",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Numeric reports whether arithmetic is defined for the kind.
func (k Kind) Numeric() bool {
	switch k {
	case Int64, Float64, BigInt, BigDecimal:
		return true
	default:
		return false
	}
}

// ParseKind maps a configuration name ("float64", "bigdecimal", ...) to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int64", "long", "int":
		return Int64, nil
	case "float64", "double", "float":
		return Float64, nil
	case "bigint", "biginteger":
		return BigInt, nil
	case "bigdecimal", "decimal":
		return BigDecimal, nil
	case "string", "text":
		return String, nil
	case "date":
		return Date, nil
	case "datetime", "timestamp":
		return DateTime, nil
	default:
		return Invalid, errors.NewValidationError("kind", "unknown value kind", name)
	}
}

// MarshalText implements encoding.TextMarshaler so kinds can live in YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value is a tagged scalar. The zero Value has kind Invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	bi   *big.Int
	bd   decimal.Decimal
	s    string
	t    time.Time
}

// NewInt64 wraps an int64.
func NewInt64(v int64) Value { return Value{kind: Int64, i: v} }

// NewFloat64 wraps a float64.
func NewFloat64(v float64) Value { return Value{kind: Float64, f: v} }

// NewBigInt wraps a copy of v.
func NewBigInt(v *big.Int) Value { return Value{kind: BigInt, bi: new(big.Int).Set(v)} }

// NewBigDecimal wraps a decimal.
func NewBigDecimal(v decimal.Decimal) Value { return Value{kind: BigDecimal, bd: v} }

// NewString wraps a string.
func NewString(v string) Value { return Value{kind: String, s: v} }

// NewDate wraps a calendar date; the time of day is dropped.
func NewDate(v time.Time) Value {
	y, m, d := v.Date()
	return Value{kind: Date, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDateTime wraps an instant, normalized to UTC.
func NewDateTime(v time.Time) Value { return Value{kind: DateTime, t: v.UTC()} }

// Default returns the value substituted when parsing into kind fails.
func Default(kind Kind) Value {
	switch kind {
	case Int64:
		return NewInt64(0)
	case Float64:
		return NewFloat64(0)
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int)}
	case BigDecimal:
		return NewBigDecimal(decimal.Zero)
	case String:
		return NewString("")
	case Date:
		return Value{kind: Date, t: time.Time{}}
	case DateTime:
		return Value{kind: DateTime, t: time.Time{}}
	default:
		return Value{}
	}
}

// Zero is the additive identity of a numeric kind.
func Zero(kind Kind) Value {
	return Default(kind)
}

// FromInt64 converts n into the given numeric kind. It is how counts become
// divisors of the same kind as the sum they divide.
func FromInt64(n int64, kind Kind) (Value, error) {
	switch kind {
	case Int64:
		return NewInt64(n), nil
	case Float64:
		return NewFloat64(float64(n)), nil
	case BigInt:
		return Value{kind: BigInt, bi: big.NewInt(n)}, nil
	case BigDecimal:
		return NewBigDecimal(decimal.NewFromInt(n)), nil
	default:
		return Value{}, errors.NewUnsupportedOperationError("FromInt64", kind.String())
	}
}

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds anything.
func (v Value) IsValid() bool { return v.kind != Invalid }

// Int64 returns the raw int64; only meaningful for kind Int64.
func (v Value) Int64() int64 { return v.i }

// BigInt returns a copy of the raw big integer; nil unless kind BigInt.
func (v Value) BigInt() *big.Int {
	if v.bi == nil {
		return nil
	}
	return new(big.Int).Set(v.bi)
}

// Decimal returns the raw decimal; only meaningful for kind BigDecimal.
func (v Value) Decimal() decimal.Decimal { return v.bd }

// Str returns the raw string; only meaningful for kind String.
func (v Value) Str() string { return v.s }

// Time returns the raw time; only meaningful for Date and DateTime.
func (v Value) Time() time.Time { return v.t }

// Float64 converts a numeric value to float64. Non-numeric kinds return an
// UnsupportedOperationError.
func (v Value) Float64() (float64, error) {
	switch v.kind {
	case Int64:
		return float64(v.i), nil
	case Float64:
		return v.f, nil
	case BigInt:
		f, _ := new(big.Float).SetInt(v.bi).Float64()
		return f, nil
	case BigDecimal:
		f, _ := v.bd.Float64()
		return f, nil
	default:
		return math.NaN(), errors.NewUnsupportedOperationError("Float64", v.kind.String())
	}
}

// IsZero reports whether a numeric value equals zero. Non-numeric values are
// never zero.
func (v Value) IsZero() bool {
	switch v.kind {
	case Int64:
		return v.i == 0
	case Float64:
		return v.f == 0
	case BigInt:
		return v.bi.Sign() == 0
	case BigDecimal:
		return v.bd.IsZero()
	default:
		return false
	}
}

// Sign returns -1, 0 or +1 for numeric values and 0 otherwise.
func (v Value) Sign() int {
	switch v.kind {
	case Int64:
		switch {
		case v.i < 0:
			return -1
		case v.i > 0:
			return 1
		}
		return 0
	case Float64:
		switch {
		case v.f < 0:
			return -1
		case v.f > 0:
			return 1
		}
		return 0
	case BigInt:
		return v.bi.Sign()
	case BigDecimal:
		return v.bd.Sign()
	default:
		return 0
	}
}

// Clone returns an independent copy with the same kind and magnitude.
func (v Value) Clone() Value {
	c := v
	if v.bi != nil {
		c.bi = new(big.Int).Set(v.bi)
	}
	return c
}

// Equal reports whether both values have the same kind and compare equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	c, err := v.Compare(o)
	return err == nil && c == 0
}

// String renders the canonical text form. The output is deterministic so
// reruns over the same input produce byte-identical files.
func (v Value) String() string {
	switch v.kind {
	case Int64:
		return strconv.FormatInt(v.i, 10)
	case Float64:
		return formatFloat(v.f)
	case BigInt:
		return v.bi.String()
	case BigDecimal:
		return v.bd.String()
	case String:
		return v.s
	case Date:
		return v.t.Format(DateLayout)
	case DateTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		return "<invalid>"
	}
}

// formatFloat always keeps a decimal point on finite integral values, so
// 6 prints as "6.0" and stays distinguishable from an int64.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
