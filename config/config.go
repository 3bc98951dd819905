// Package config loads the immutable pipeline configuration. A Config is read
// once, validated, and then handed by value to every component.
package config

import (
	"bytes"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/seriesml/core/model"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/regression"
)

// Environment overrides applied after the file is read.
const (
	EnvLogLevel    = "SERIESML_LOG_LEVEL"
	EnvParallelism = "SERIESML_PARALLELISM"
)

// Config is the whole pipeline configuration.
type Config struct {
	// Tracked lists the fields the statistics job works on.
	Tracked      []string `yaml:"tracked" validate:"required,min=1,unique,dive,required"`
	Dependent    string   `yaml:"dependent" validate:"required"`
	Independents []string `yaml:"independents" validate:"required,min=1,unique,dive,required"`

	// Kinds maps field names to value kinds; unlisted fields use DefaultKind.
	Kinds       map[string]string `yaml:"kinds" validate:"dive,keys,required,endkeys,kind"`
	DefaultKind string            `yaml:"default_kind" validate:"kind"`

	Rounding   Rounding   `yaml:"rounding"`
	Model      Model      `yaml:"model"`
	Stop       Stop       `yaml:"stop"`
	Validation Validation `yaml:"validation"`
	Substrate  Substrate  `yaml:"substrate"`
	Log        Log        `yaml:"log"`
}

// Rounding is the BigDecimal rounding policy. A negative scale keeps the
// dividend's scale.
type Rounding struct {
	Mode  string `yaml:"mode" validate:"omitempty,oneof=up down half_up half_even"`
	Scale int32  `yaml:"scale"`
}

// Model holds the initial model parameters.
type Model struct {
	Weight       float64 `yaml:"weight"`
	Bias         float64 `yaml:"bias"`
	LearningRate float64 `yaml:"learning_rate" validate:"gt=0"`
}

// Stop holds the training stop conditions; at least one must be set.
type Stop struct {
	EpochLimit     int      `yaml:"epoch_limit" validate:"gte=0"`
	TargetCost     *float64 `yaml:"target_cost" validate:"omitempty,gte=0"`
	SteadyDecimals int      `yaml:"steady_decimals" validate:"gte=0,lte=18"`
	SteadyEpochs   int      `yaml:"steady_epochs" validate:"gte=0"`
}

// Validation is the inclusive date range of held-out examples.
type Validation struct {
	From string `yaml:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `yaml:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Substrate sizes the local map/reduce runs.
type Substrate struct {
	MapTasks    int    `yaml:"map_tasks" validate:"gte=0"`
	Partitions  int    `yaml:"partitions" validate:"gte=0"`
	Parallelism int    `yaml:"parallelism" validate:"gte=0"`
	ShuffleSeed uint64 `yaml:"shuffle_seed"`
	Combiner    *bool  `yaml:"combiner"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("kind", validateKind)
}

func validateKind(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}
	_, err := value.ParseKind(name)
	return err == nil
}

// Default returns the configuration every file is layered on.
func Default() Config {
	return Config{
		DefaultKind: value.Float64.String(),
		Rounding:    Rounding{Mode: value.DefaultRounding.Mode.String(), Scale: value.DefaultRounding.Scale},
		Model:       Model{LearningRate: 0.01},
		Log:         Log{Level: "info"},
	}
}

// Load reads the YAML file at path over Default, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvParallelism); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvParallelism, "must be an integer", v)
		}
		c.Substrate.Parallelism = n
	}
	return nil
}

// Validate runs the struct rules and the cross-field checks.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed rule "+fe.Tag(), fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}

	if slices.Contains(c.Independents, c.Dependent) {
		return errors.NewValidationError("independents", "must not contain the dependent variable", c.Dependent)
	}
	for _, name := range append([]string{c.Dependent}, c.Independents...) {
		if !slices.Contains(c.Tracked, name) {
			return errors.NewValidationError("tracked", "must include "+name, c.Tracked)
		}
	}
	if err := c.StopConditions().Validate(); err != nil {
		return err
	}
	from, to, err := c.ValidationRange()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return errors.NewValidationError("validation", "from must not be after to", c.Validation.From+" > "+c.Validation.To)
	}
	return nil
}

// Kind returns the configured kind of field.
func (c Config) Kind(field string) value.Kind {
	if name, ok := c.Kinds[field]; ok {
		if k, err := value.ParseKind(name); err == nil {
			return k
		}
	}
	return c.defaultKind()
}

func (c Config) defaultKind() value.Kind {
	k, err := value.ParseKind(c.DefaultKind)
	if err != nil {
		return value.Float64
	}
	return k
}

// Parser returns the input record parser for the configured kinds.
func (c Config) Parser() *record.LineParser {
	kinds := make(map[string]value.Kind, len(c.Kinds))
	for f := range c.Kinds {
		kinds[f] = c.Kind(f)
	}
	return record.NewLineParser(kinds, c.defaultKind())
}

// RoundingPolicy returns the BigDecimal rounding policy.
func (c Config) RoundingPolicy() value.Rounding {
	mode, err := value.ParseRoundingMode(c.Rounding.Mode)
	if err != nil {
		mode = value.DefaultRounding.Mode
	}
	return value.Rounding{Mode: mode, Scale: c.Rounding.Scale}
}

// CombinerEnabled reports whether map-side combining is on (the default).
func (c Config) CombinerEnabled() bool {
	return c.Substrate.Combiner == nil || *c.Substrate.Combiner
}

// StopConditions returns the training stop rules.
func (c Config) StopConditions() regression.StopConditions {
	return regression.StopConditions{
		EpochLimit:     c.Stop.EpochLimit,
		TargetCost:     c.Stop.TargetCost,
		SteadyDecimals: c.Stop.SteadyDecimals,
		SteadyEpochs:   c.Stop.SteadyEpochs,
	}
}

// InitialState returns the epoch-zero model with the precomputed counts.
func (c Config) InitialState(counts map[string]int64) model.ModelState {
	return model.NewModelState(c.Model.Weight, c.Model.Bias, c.Model.LearningRate, counts)
}

// TrainerConfig returns the trainer part of the configuration.
func (c Config) TrainerConfig(countsSource string) regression.TrainerConfig {
	return regression.TrainerConfig{
		Dependent:    c.Dependent,
		Independents: slices.Clone(c.Independents),
		CountsSource: countsSource,
		MapTasks:     c.Substrate.MapTasks,
		Partitions:   c.Substrate.Partitions,
		Parallelism:  c.Substrate.Parallelism,
		ShuffleSeed:  c.Substrate.ShuffleSeed,
	}
}

// ValidationRange parses the validation bounds. Empty bounds are zero times.
func (c Config) ValidationRange() (from, to time.Time, err error) {
	if c.Validation.From != "" {
		if from, err = time.Parse(value.DateLayout, c.Validation.From); err != nil {
			return time.Time{}, time.Time{}, errors.NewValidationError("validation.from", "not a date", c.Validation.From)
		}
	}
	if c.Validation.To != "" {
		if to, err = time.Parse(value.DateLayout, c.Validation.To); err != nil {
			return time.Time{}, time.Time{}, errors.NewValidationError("validation.to", "not a date", c.Validation.To)
		}
	}
	return from, to, nil
}

// ValidationConfig returns the validator part of the configuration.
func (c Config) ValidationConfig() (regression.ValidationConfig, error) {
	from, to, err := c.ValidationRange()
	if err != nil {
		return regression.ValidationConfig{}, err
	}
	return regression.ValidationConfig{
		Dependent:    c.Dependent,
		Independents: slices.Clone(c.Independents),
		From:         from,
		To:           to,
		MapTasks:     c.Substrate.MapTasks,
		Partitions:   c.Substrate.Partitions,
		Parallelism:  c.Substrate.Parallelism,
	}, nil
}
