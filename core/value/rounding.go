package value

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// RoundingMode selects how BigDecimal results are rounded to their scale.
type RoundingMode uint8

const (
	// RoundUp rounds away from zero whenever any discarded digit is non-zero.
	RoundUp RoundingMode = iota
	// RoundDown truncates towards zero.
	RoundDown
	// RoundHalfUp rounds to nearest, ties away from zero.
	RoundHalfUp
	// RoundHalfEven rounds to nearest, ties to the even neighbour.
	RoundHalfEven
)

func (m RoundingMode) String() string {
	switch m {
	case RoundUp:
		return "up"
	case RoundDown:
		return "down"
	case RoundHalfUp:
		return "half_up"
	case RoundHalfEven:
		return "half_even"
	default:
		return "unknown"
	}
}

// ParseRoundingMode maps a configuration name to a RoundingMode.
func ParseRoundingMode(name string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "up":
		return RoundUp, nil
	case "down":
		return RoundDown, nil
	case "half_up", "halfup":
		return RoundHalfUp, nil
	case "half_even", "halfeven", "bankers":
		return RoundHalfEven, nil
	default:
		return RoundUp, errors.NewValidationError("rounding.mode", "unknown rounding mode", name)
	}
}

// Rounding is the caller-visible policy for inexact BigDecimal results.
// Scale is the number of digits kept after the decimal point; a negative
// Scale keeps the scale of the left operand.
type Rounding struct {
	Mode  RoundingMode
	Scale int32
}

// DefaultRounding rounds away from zero at the dividend's scale.
var DefaultRounding = Rounding{Mode: RoundUp, Scale: -1}

func (r Rounding) scaleFor(d decimal.Decimal) int32 {
	if r.Scale >= 0 {
		return r.Scale
	}
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// divDecimal divides exactly and then rounds the quotient at scale using the
// remainder, so ties are detected without an intermediate approximation.
func divDecimal(a, b decimal.Decimal, r Rounding) decimal.Decimal {
	scale := r.scaleFor(a)
	q, rem := a.QuoRem(b, scale)
	if rem.IsZero() || r.Mode == RoundDown {
		return q
	}

	unit := decimal.New(1, -scale)
	if a.Sign()*b.Sign() < 0 {
		unit = unit.Neg()
	}

	// compare the discarded fraction against one half of a unit
	twice := rem.Abs().Mul(decimal.NewFromInt(2))
	half := b.Abs().Mul(decimal.New(1, -scale))
	cmp := twice.Cmp(half)

	switch r.Mode {
	case RoundUp:
		return q.Add(unit)
	case RoundHalfUp:
		if cmp >= 0 {
			return q.Add(unit)
		}
	case RoundHalfEven:
		if cmp > 0 || (cmp == 0 && isOddAt(q, scale)) {
			return q.Add(unit)
		}
	}
	return q
}

func isOddAt(q decimal.Decimal, scale int32) bool {
	return !q.Shift(scale).Mod(decimal.NewFromInt(2)).IsZero()
}

// roundDecimal rounds an already approximate decimal to scale.
func roundDecimal(d decimal.Decimal, r Rounding, scale int32) decimal.Decimal {
	switch r.Mode {
	case RoundDown:
		return d.RoundDown(scale)
	case RoundHalfUp:
		return d.Round(scale)
	case RoundHalfEven:
		return d.RoundBank(scale)
	default:
		return d.RoundUp(scale)
	}
}
