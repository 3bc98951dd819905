package value

import (
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

func dec(s string) Value {
	return NewBigDecimal(decimal.RequireFromString(s))
}

func TestArithmeticSameKind(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b Value) (Value, error)
		a, b Value
		want string
	}{
		{"int add", Value.Add, NewInt64(2), NewInt64(3), "5"},
		{"float mul", Value.Mul, NewFloat64(2), NewFloat64(3), "6.0"},
		{"bigint sub", Value.Sub, NewBigInt(big.NewInt(10)), NewBigInt(big.NewInt(4)), "6"},
		{"decimal add", Value.Add, dec("1.25"), dec("2.5"), "3.75"},
		{"int div truncates", Value.Div, NewInt64(7), NewInt64(2), "3"},
		{"bigint div truncates", Value.Div, NewBigInt(big.NewInt(-7)), NewBigInt(big.NewInt(2)), "-3"},
		{"float div exact", Value.Div, NewFloat64(1), NewFloat64(4), "0.25"},
		{"decimal div rounds up at dividend scale", Value.Div, dec("7"), dec("2"), "4"},
		{"string min", Value.Min, NewString("b"), NewString("a"), "a"},
		{"float max", Value.Max, NewFloat64(-1), NewFloat64(3), "3.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.a.Kind(), got.Kind())
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestArithmeticTypeMismatch(t *testing.T) {
	ops := map[string]func(a, b Value) (Value, error){
		"Add": Value.Add,
		"Sub": Value.Sub,
		"Mul": Value.Mul,
		"Div": Value.Div,
		"Min": Value.Min,
		"Max": Value.Max,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			_, err := op(NewFloat64(1), NewInt64(1))
			require.Error(t, err)
			var tm *errors.TypeMismatchError
			require.True(t, errors.As(err, &tm))
			assert.Equal(t, "float64", tm.Left)
			assert.Equal(t, "int64", tm.Right)
		})
	}
}

func TestArithmeticUnsupportedKinds(t *testing.T) {
	_, err := NewString("a").Add(NewString("b"))
	var unsupported *errors.UnsupportedOperationError
	require.True(t, errors.As(err, &unsupported))

	_, err = NewDate(time.Now()).Mul(NewDate(time.Now()))
	require.True(t, errors.As(err, &unsupported))
}

func TestDivisionByZero(t *testing.T) {
	for _, kind := range []Kind{Int64, Float64, BigInt, BigDecimal} {
		t.Run(kind.String(), func(t *testing.T) {
			one, err := FromInt64(1, kind)
			require.NoError(t, err)
			_, err = one.Div(Zero(kind))
			var zd *errors.ZeroDivisionError
			assert.True(t, errors.As(err, &zd))
		})
	}
}

func TestDecimalRoundingModes(t *testing.T) {
	tests := []struct {
		a, b  string
		mode  RoundingMode
		scale int32
		want  string
	}{
		{"1", "3", RoundUp, 2, "0.34"},
		{"-1", "3", RoundUp, 2, "-0.34"},
		{"1", "3", RoundDown, 2, "0.33"},
		{"2", "3", RoundHalfUp, 2, "0.67"},
		{"0.125", "1", RoundHalfUp, 2, "0.13"},
		{"0.125", "1", RoundHalfEven, 2, "0.12"},
		{"0.135", "1", RoundHalfEven, 2, "0.14"},
		{"1", "8", RoundHalfEven, 2, "0.12"},
		{"6.0", "3", RoundUp, -1, "2"},
		{"1.00", "3", RoundUp, -1, "0.34"},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b+"@"+tt.mode.String(), func(t *testing.T) {
			got, err := dec(tt.a).DivRound(dec(tt.b), Rounding{Mode: tt.mode, Scale: tt.scale})
			require.NoError(t, err)
			assert.True(t, got.Decimal().Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestSqrt(t *testing.T) {
	got, err := NewInt64(10).Sqrt(DefaultRounding)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Int64())

	got, err = NewBigInt(big.NewInt(16)).Sqrt(DefaultRounding)
	require.NoError(t, err)
	assert.Equal(t, "4", got.String())

	got, err = NewFloat64(2).Sqrt(DefaultRounding)
	require.NoError(t, err)
	f, _ := got.Float64()
	assert.InDelta(t, math.Sqrt2, f, 1e-15)

	got, err = dec("2").Sqrt(Rounding{Mode: RoundDown, Scale: 4})
	require.NoError(t, err)
	assert.Equal(t, "1.4142", got.String())

	got, err = dec("2").Sqrt(Rounding{Mode: RoundUp, Scale: 4})
	require.NoError(t, err)
	assert.Equal(t, "1.4143", got.String())

	_, err = NewFloat64(-1).Sqrt(DefaultRounding)
	assert.Error(t, err)
}

func TestPow(t *testing.T) {
	got, err := NewInt64(3).Pow(3)
	require.NoError(t, err)
	assert.Equal(t, int64(27), got.Int64())

	got, err = dec("1.5").Pow(2)
	require.NoError(t, err)
	assert.Equal(t, "2.25", got.String())

	got, err = NewFloat64(2).Pow(-1)
	require.NoError(t, err)
	assert.Equal(t, "0.5", got.String())

	_, err = NewInt64(2).Pow(-1)
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewBigInt(big.NewInt(41))
	c := orig.Clone()
	assert.True(t, orig.Equal(c))

	sum, err := c.Add(NewBigInt(big.NewInt(1)))
	require.NoError(t, err)
	assert.Equal(t, "42", sum.String())
	assert.Equal(t, "41", orig.String())
	assert.Equal(t, "41", c.String())
}

func TestFloatFormatting(t *testing.T) {
	assert.Equal(t, "6.0", NewFloat64(6).String())
	assert.Equal(t, "-2.0", NewFloat64(-2).String())
	assert.Equal(t, "0.6666666666666666", NewFloat64(2.0/3.0).String())
	assert.Equal(t, "1e+21", NewFloat64(1e21).String())
	assert.Equal(t, "NaN", NewFloat64(math.NaN()).String())
}

func TestParseStrict(t *testing.T) {
	v, err := ParseStrict(" 42 ", Int64)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())

	v, err = ParseStrict("123456789012345678901234567890", BigInt)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", v.String())

	v, err = ParseStrict("2019-03-04", Date)
	require.NoError(t, err)
	assert.Equal(t, "2019-03-04", v.String())

	v, err = ParseStrict("2019-03-04 10:11:12", DateTime)
	require.NoError(t, err)
	assert.Equal(t, 10, v.Time().Hour())

	_, err = ParseStrict("abc", Float64)
	assert.Error(t, err)
}

func TestParseSubstitutesDefaultAndWarns(t *testing.T) {
	var mu sync.Mutex
	var warnings []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	tests := []struct {
		kind Kind
		want Value
	}{
		{Int64, NewInt64(0)},
		{Float64, NewFloat64(0)},
		{BigInt, NewBigInt(big.NewInt(0))},
		{BigDecimal, NewBigDecimal(decimal.Zero)},
		{Date, Default(Date)},
	}
	for _, tt := range tests {
		got := ParseField("precip", "n/a", tt.kind)
		assert.True(t, tt.want.Equal(got), "kind %s", tt.kind)
	}

	assert.True(t, Default(Date).Time().IsZero())
	require.Len(t, warnings, len(tests))
	var conv *errors.DataConversionWarning
	require.True(t, errors.As(warnings[0], &conv))
	assert.Equal(t, "precip", conv.Field)
	assert.Equal(t, "n/a", conv.Raw)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("BigDecimal")
	require.NoError(t, err)
	assert.Equal(t, BigDecimal, k)

	var kind Kind
	require.NoError(t, kind.UnmarshalText([]byte("double")))
	assert.Equal(t, Float64, kind)

	_, err = ParseKind("complex")
	assert.Error(t, err)
}

func TestFromInt64(t *testing.T) {
	v, err := FromInt64(3, BigDecimal)
	require.NoError(t, err)
	assert.Equal(t, BigDecimal, v.Kind())
	assert.Equal(t, "3", v.String())

	_, err = FromInt64(3, String)
	assert.Error(t, err)
}
