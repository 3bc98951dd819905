package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

const sample = `
tracked: [crimes, temp, price]
dependent: crimes
independents: [temp, price]
kinds:
  crimes: int64
  price: bigdecimal
default_kind: float64
rounding:
  mode: half_up
  scale: 4
model:
  weight: 0.5
  bias: 1
  learning_rate: 0.001
stop:
  epoch_limit: 100
  target_cost: 0.25
  steady_decimals: 4
  steady_epochs: 3
validation:
  from: 2015-01-01
  to: 2015-12-31
substrate:
  map_tasks: 8
  partitions: 4
  parallelism: 2
  shuffle_seed: 7
  combiner: false
log:
  level: debug
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"crimes", "temp", "price"}, cfg.Tracked)
	assert.Equal(t, value.Int64, cfg.Kind("crimes"))
	assert.Equal(t, value.BigDecimal, cfg.Kind("price"))
	assert.Equal(t, value.Float64, cfg.Kind("temp"))
	assert.Equal(t, value.Rounding{Mode: value.RoundHalfUp, Scale: 4}, cfg.RoundingPolicy())
	assert.False(t, cfg.CombinerEnabled())

	stops := cfg.StopConditions()
	assert.Equal(t, 100, stops.EpochLimit)
	require.NotNil(t, stops.TargetCost)
	assert.Equal(t, 0.25, *stops.TargetCost)

	state := cfg.InitialState(map[string]int64{"temp": 10})
	assert.Equal(t, 0.5, state.Weight)
	assert.Equal(t, 0.001, state.LearningRate)
	assert.Equal(t, 0, state.Epoch)

	tc := cfg.TrainerConfig("counts.txt")
	assert.Equal(t, "crimes", tc.Dependent)
	assert.Equal(t, 8, tc.MapTasks)
	assert.Equal(t, uint64(7), tc.ShuffleSeed)

	vc, err := cfg.ValidationConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), vc.From)
	assert.Equal(t, time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC), vc.To)

	p := cfg.Parser()
	rec, err := p.Parse("2015-03-01\tcrimes:12, temp:3.5, price:10.25")
	require.NoError(t, err)
	v, _ := rec.Get("price")
	assert.Equal(t, value.BigDecimal, v.Kind())
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
tracked: [y, x]
dependent: y
independents: [x]
stop:
  epoch_limit: 5
`))
	require.NoError(t, err)
	assert.Equal(t, value.DefaultRounding, cfg.RoundingPolicy())
	assert.True(t, cfg.CombinerEnabled())
	assert.Equal(t, 0.01, cfg.Model.LearningRate)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, value.Float64, cfg.Kind("x"))
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no stop condition", `
tracked: [y, x]
dependent: y
independents: [x]
`},
		{"dependent among independents", `
tracked: [y, x]
dependent: y
independents: [x, y]
stop: {epoch_limit: 1}
`},
		{"independent not tracked", `
tracked: [y]
dependent: y
independents: [x]
stop: {epoch_limit: 1}
`},
		{"inverted range", `
tracked: [y, x]
dependent: y
independents: [x]
stop: {epoch_limit: 1}
validation: {from: 2016-01-01, to: 2015-01-01}
`},
		{"bad date", `
tracked: [y, x]
dependent: y
independents: [x]
stop: {epoch_limit: 1}
validation: {from: 01/02/2015}
`},
		{"unknown kind", `
tracked: [y, x]
dependent: y
independents: [x]
kinds: {x: complex}
stop: {epoch_limit: 1}
`},
		{"non-positive learning rate", `
tracked: [y, x]
dependent: y
independents: [x]
model: {learning_rate: 0}
stop: {epoch_limit: 1}
`},
		{"bad rounding mode", `
tracked: [y, x]
dependent: y
independents: [x]
rounding: {mode: ceiling}
stop: {epoch_limit: 1}
`},
		{"missing dependent", `
tracked: [x]
independents: [x]
stop: {epoch_limit: 1}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte(`
tracked: [y, x]
dependent: y
independents: [x]
stop: {epoch_limit: 1}
epochs: 3
`))
	assert.Error(t, err)
}

func TestLoadWithEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seriesml.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvParallelism, "16")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Substrate.Parallelism)

	t.Setenv(EnvParallelism, "many")
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
