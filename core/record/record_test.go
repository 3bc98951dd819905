package record

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

func TestLineParser(t *testing.T) {
	p := NewLineParser(map[string]value.Kind{"crimes": value.Int64}, value.Float64)

	rec, err := p.Parse("2015-01-02\tcrimes:12, temp:3.5, close:101.25")
	require.NoError(t, err)
	assert.Equal(t, "2015-01-02", rec.Key)
	assert.Equal(t, []string{"crimes", "temp", "close"}, rec.Names())

	crimes, ok := rec.Get("crimes")
	require.True(t, ok)
	assert.Equal(t, value.Int64, crimes.Kind())
	assert.Equal(t, int64(12), crimes.Int64())

	temp, ok := rec.Get("temp")
	require.True(t, ok)
	f, err := temp.Float64()
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)
}

func TestLineParserRecoversFromBadInput(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	p := NewLineParser(nil, value.Float64)
	rec, err := p.Parse("2015-01-02\ttemp:n/a, broken, rain:0.2")
	require.NoError(t, err)

	assert.Equal(t, []string{"temp", "rain"}, rec.Names())
	temp, _ := rec.Get("temp")
	assert.True(t, temp.IsZero())
	assert.Len(t, warnings, 2)

	var skipped *errors.SkippedRecordWarning
	assert.True(t, errors.As(warnings[1], &skipped))
}

func TestLineParserRejectsLineWithoutKey(t *testing.T) {
	_, err := NewLineParser(nil, value.Float64).Parse("temp:1.0")
	assert.Error(t, err)
}

func TestFormatRoundTrip(t *testing.T) {
	line := "2015-01-02\ta:2.0, b:3.0"
	rec, err := NewLineParser(nil, value.Float64).Parse(line)
	require.NoError(t, err)
	assert.Equal(t, line, rec.String())
}

func TestSetAndGet(t *testing.T) {
	rec := New("k", Field{Name: "a", Value: value.NewFloat64(1)})
	rec.Set("a", value.NewFloat64(2))
	rec.Set("b", value.NewFloat64(3))

	a, _ := rec.Get("a")
	assert.Equal(t, "2.0", a.String())
	assert.Equal(t, []string{"a", "b"}, rec.Names())
	_, ok := rec.Get("missing")
	assert.False(t, ok)
}

func TestDate(t *testing.T) {
	d, err := Date("2016-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC), d)

	d, err = Date("2016-02-29 13:00:00")
	require.NoError(t, err)
	assert.Equal(t, 13, d.Hour())

	_, err = Date("epoch-1")
	assert.Error(t, err)
}

func TestReadAndWrite(t *testing.T) {
	input := "2015-01-01\tx:1.0\n\n2015-01-02\tx:2.0\n"
	recs, err := Read(strings.NewReader(input), NewLineParser(nil, value.Float64))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, recs))
	assert.Equal(t, "2015-01-01\tx:1.0\n2015-01-02\tx:2.0\n", buf.String())
}

func TestSelectors(t *testing.T) {
	rec := New("k",
		Field{Name: "b", Value: value.NewFloat64(2)},
		Field{Name: "a", Value: value.NewFloat64(1)},
	)
	got := Tracked{"a", "c", "b"}.Select(rec)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
	assert.Len(t, All{}.Select(rec), 2)
}
