package value

import (
	"cmp"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// sqrtPrecision is the mantissa size, in bits, used for BigDecimal square roots.
const sqrtPrecision = 256

func (v Value) checkNumeric(op string, o Value) error {
	if v.kind != o.kind {
		return errors.NewTypeMismatchError(op, v.kind.String(), o.kind.String())
	}
	if !v.kind.Numeric() {
		return errors.NewUnsupportedOperationError(op, v.kind.String())
	}
	return nil
}

// Add returns v + o.
func (v Value) Add(o Value) (Value, error) {
	if err := v.checkNumeric("Add", o); err != nil {
		return Value{}, err
	}
	switch v.kind {
	case Int64:
		return NewInt64(v.i + o.i), nil
	case Float64:
		return NewFloat64(v.f + o.f), nil
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int).Add(v.bi, o.bi)}, nil
	default:
		return NewBigDecimal(v.bd.Add(o.bd)), nil
	}
}

// Sub returns v - o.
func (v Value) Sub(o Value) (Value, error) {
	if err := v.checkNumeric("Sub", o); err != nil {
		return Value{}, err
	}
	switch v.kind {
	case Int64:
		return NewInt64(v.i - o.i), nil
	case Float64:
		return NewFloat64(v.f - o.f), nil
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int).Sub(v.bi, o.bi)}, nil
	default:
		return NewBigDecimal(v.bd.Sub(o.bd)), nil
	}
}

// Mul returns v * o.
func (v Value) Mul(o Value) (Value, error) {
	if err := v.checkNumeric("Mul", o); err != nil {
		return Value{}, err
	}
	switch v.kind {
	case Int64:
		return NewInt64(v.i * o.i), nil
	case Float64:
		return NewFloat64(v.f * o.f), nil
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int).Mul(v.bi, o.bi)}, nil
	default:
		return NewBigDecimal(v.bd.Mul(o.bd)), nil
	}
}

// Div divides with DefaultRounding.
func (v Value) Div(o Value) (Value, error) {
	return v.DivRound(o, DefaultRounding)
}

// DivRound returns v / o. Integer kinds truncate towards zero, Float64 is
// exact IEEE division and BigDecimal is rounded with r. A zero divisor is a
// ZeroDivisionError for every kind.
func (v Value) DivRound(o Value, r Rounding) (Value, error) {
	if err := v.checkNumeric("Div", o); err != nil {
		return Value{}, err
	}
	if o.IsZero() {
		return Value{}, errors.NewZeroDivisionError("Div")
	}
	switch v.kind {
	case Int64:
		return NewInt64(v.i / o.i), nil
	case Float64:
		return NewFloat64(v.f / o.f), nil
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int).Quo(v.bi, o.bi)}, nil
	default:
		return NewBigDecimal(divDecimal(v.bd, o.bd, r)), nil
	}
}

// Min returns the smaller of two values of the same kind.
func (v Value) Min(o Value) (Value, error) {
	c, err := v.Compare(o)
	if err != nil {
		return Value{}, err
	}
	if c <= 0 {
		return v, nil
	}
	return o, nil
}

// Max returns the larger of two values of the same kind.
func (v Value) Max(o Value) (Value, error) {
	c, err := v.Compare(o)
	if err != nil {
		return Value{}, err
	}
	if c >= 0 {
		return v, nil
	}
	return o, nil
}

// Compare orders two values of the same kind, returning -1, 0 or +1.
func (v Value) Compare(o Value) (int, error) {
	if v.kind != o.kind {
		return 0, errors.NewTypeMismatchError("Compare", v.kind.String(), o.kind.String())
	}
	switch v.kind {
	case Int64:
		return cmp.Compare(v.i, o.i), nil
	case Float64:
		return cmp.Compare(v.f, o.f), nil
	case BigInt:
		return v.bi.Cmp(o.bi), nil
	case BigDecimal:
		return v.bd.Cmp(o.bd), nil
	case String:
		return cmp.Compare(v.s, o.s), nil
	case Date, DateTime:
		return v.t.Compare(o.t), nil
	default:
		return 0, errors.NewUnsupportedOperationError("Compare", v.kind.String())
	}
}

// Neg returns -v.
func (v Value) Neg() (Value, error) {
	switch v.kind {
	case Int64:
		return NewInt64(-v.i), nil
	case Float64:
		return NewFloat64(-v.f), nil
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int).Neg(v.bi)}, nil
	case BigDecimal:
		return NewBigDecimal(v.bd.Neg()), nil
	default:
		return Value{}, errors.NewUnsupportedOperationError("Neg", v.kind.String())
	}
}

// Pow raises v to the integer power n. Exact kinds require n >= 0.
func (v Value) Pow(n int) (Value, error) {
	if !v.kind.Numeric() {
		return Value{}, errors.NewUnsupportedOperationError("Pow", v.kind.String())
	}
	if v.kind == Float64 {
		return NewFloat64(math.Pow(v.f, float64(n))), nil
	}
	if n < 0 {
		return Value{}, errors.NewValueError("Pow", "negative exponent requires float64 values")
	}
	switch v.kind {
	case Int64:
		result := int64(1)
		for i := 0; i < n; i++ {
			result *= v.i
		}
		return NewInt64(result), nil
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int).Exp(v.bi, big.NewInt(int64(n)), nil)}, nil
	default:
		return NewBigDecimal(v.bd.Pow(decimal.NewFromInt(int64(n)))), nil
	}
}

// Sqrt returns the square root of a non-negative value. Integer kinds return
// the floor; BigDecimal is rounded with r at r's scale (or v's scale when
// r.Scale is negative).
func (v Value) Sqrt(r Rounding) (Value, error) {
	if !v.kind.Numeric() {
		return Value{}, errors.NewUnsupportedOperationError("Sqrt", v.kind.String())
	}
	if v.Sign() < 0 {
		return Value{}, errors.NewValueError("Sqrt", "negative operand "+v.String())
	}
	switch v.kind {
	case Int64:
		s := int64(math.Sqrt(float64(v.i)))
		for s*s > v.i {
			s--
		}
		for (s+1)*(s+1) <= v.i {
			s++
		}
		return NewInt64(s), nil
	case Float64:
		return NewFloat64(math.Sqrt(v.f)), nil
	case BigInt:
		return Value{kind: BigInt, bi: new(big.Int).Sqrt(v.bi)}, nil
	default:
		f, _, err := big.ParseFloat(v.bd.String(), 10, sqrtPrecision, big.ToNearestEven)
		if err != nil {
			return Value{}, errors.Wrap(err, "Sqrt")
		}
		root := new(big.Float).SetPrec(sqrtPrecision).Sqrt(f)
		d, err := decimal.NewFromString(root.Text('f', 60))
		if err != nil {
			return Value{}, errors.Wrap(err, "Sqrt")
		}
		return NewBigDecimal(roundDecimal(d, r, r.scaleFor(v.bd))), nil
	}
}
