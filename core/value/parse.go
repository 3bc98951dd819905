package value

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Layouts accepted for temporal kinds.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// ParseStrict converts raw text to kind and fails on malformed input.
func ParseStrict(raw string, kind Kind) (Value, error) {
	s := strings.TrimSpace(raw)
	switch kind {
	case Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse %q as %s", raw, kind)
		}
		return NewInt64(n), nil
	case Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse %q as %s", raw, kind)
		}
		return NewFloat64(f), nil
	case BigInt:
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Value{}, errors.Newf("parse %q as %s: invalid integer", raw, kind)
		}
		return Value{kind: BigInt, bi: n}, nil
	case BigDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse %q as %s", raw, kind)
		}
		return NewBigDecimal(d), nil
	case String:
		return NewString(raw), nil
	case Date:
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse %q as %s", raw, kind)
		}
		return NewDate(t), nil
	case DateTime:
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return NewDateTime(t), nil
		}
		t, err := time.Parse(DateTimeLayout, s)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse %q as %s", raw, kind)
		}
		return NewDateTime(t), nil
	default:
		return Value{}, errors.NewUnsupportedOperationError("Parse", kind.String())
	}
}

// Parse converts raw text to kind. Malformed input never fails the caller:
// the kind default is substituted and a DataConversionWarning is reported.
func Parse(raw string, kind Kind) Value {
	return ParseField("", raw, kind)
}

// ParseField is Parse with the field name attached to any warning.
func ParseField(field, raw string, kind Kind) Value {
	v, err := ParseStrict(raw, kind)
	if err != nil {
		errors.Warn(errors.NewDataConversionWarning(field, raw, kind.String(), err.Error()))
		return Default(kind)
	}
	return v
}
