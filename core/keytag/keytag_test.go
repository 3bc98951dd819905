package keytag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

func TestSplitTagRoundTrip(t *testing.T) {
	for _, base := range []string{"x", "precip", "max-temp", "a+b", `back\slash`} {
		for _, m := range Metrics() {
			key := Tag(Name(base), m)
			p, err := Split(key)
			require.NoError(t, err, key)
			assert.Equal(t, base, p.Base)
			assert.Empty(t, p.Other)
			assert.Equal(t, []Metric{m}, p.Metrics)
			assert.Equal(t, key, p.Key())
		}
	}
}

func TestSplitPairKeepsOrder(t *testing.T) {
	p, err := Split(Pair(Name("b"), Name("a")))
	require.NoError(t, err)
	assert.Equal(t, "b", p.Base)
	assert.Equal(t, "a", p.Other)
	assert.Empty(t, p.Metrics)

	p, err = Split(Tag(Pair(Name("close-price"), Name("crime")), PRD))
	require.NoError(t, err)
	assert.Equal(t, "close-price", p.Base)
	assert.Equal(t, "crime", p.Other)
	assert.Equal(t, PRD, p.Metric())
}

func TestStackedMetrics(t *testing.T) {
	key := Tag(Tag("x", SQ), SUM)
	assert.Equal(t, "x-SQ-SUM", key)

	p, err := Split(key)
	require.NoError(t, err)
	assert.Equal(t, []Metric{SQ, SUM}, p.Metrics)
	assert.Equal(t, SUM, p.Metric())

	p, err = Split("x-ERR-SQ")
	require.NoError(t, err)
	assert.Equal(t, []Metric{ERR, SQ}, p.Metrics)
}

func TestCanonicalPairing(t *testing.T) {
	assert.True(t, Canonical("a", "b"))
	assert.False(t, Canonical("b", "a"))
	assert.False(t, Canonical("a", "a"))
}

func TestIsStandard(t *testing.T) {
	tests := map[string]bool{
		"x":          true,
		Name("a-b"):  true,
		"x-SQ":       false,
		"a+b":        false,
		"a+b-PRD":    false,
		"x-UNKNOWN":  true,
		"max-temp":   true,
		"x-FOO-SUM":  false,
		"x-SQ-FOO":   false,
		"":           false,
		Name("a+b"):  true,
		"x-SQ-SUM":   false,
		Name(`a\b`):  true,
		"trailing\\": false,
	}
	for key, want := range tests {
		assert.Equal(t, want, IsStandard(key), "key %q", key)
	}
}

func TestSplitErrors(t *testing.T) {
	for _, key := range []string{"", "-SUM", "x-BOGUS", "a+", "x-SUM+y", "a+b+c", `x\`} {
		_, err := Split(key)
		require.Error(t, err, key)
		var kf *errors.KeyFormatError
		assert.True(t, errors.As(err, &kf), key)
	}
}

func TestNameEscaping(t *testing.T) {
	assert.Equal(t, "plain", Name("plain"))
	assert.Equal(t, `max\-temp`, Name("max-temp"))
	assert.Equal(t, "max-temp", Unname(Name("max-temp")))
	assert.Equal(t, `a\\b\+c`, Name(`a\b+c`))
	assert.Equal(t, `a\b+c`, Unname(Name(`a\b+c`)))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "count", CNT.Label())
	assert.Equal(t, "sum", SUM.Label())
	m, ok := MetricForLabel("mean")
	require.True(t, ok)
	assert.Equal(t, MEAN, m)
	_, ok = MetricForLabel("median")
	assert.False(t, ok)
}
