package regression

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/seriesml/core/keytag"
	"github.com/YuminosukeSato/seriesml/core/mapreduce"
	"github.com/YuminosukeSato/seriesml/core/model"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/metrics"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/pkg/telemetry"
)

// ValidateJobName labels validator logs and metrics.
const ValidateJobName = "regression.validate"

// ValidationConfig selects the held-out examples.
type ValidationConfig struct {
	Dependent    string
	Independents []string
	// From and To bound the record dates, both inclusive. A zero bound is
	// open.
	From time.Time
	To   time.Time

	MapTasks    int
	Partitions  int
	Parallelism int
}

// Diagnostic is one validated example.
type Diagnostic struct {
	Variable string  `csv:"variable"`
	Date     string  `csv:"date"`
	Y        float64 `csv:"y"`
	YHat     float64 `csv:"y_hat"`
	Residual float64 `csv:"residual"`
}

// VariableValidation holds the goodness-of-fit of one independent variable.
type VariableValidation struct {
	Variable   string
	N          int
	K          int
	Mean       float64
	SSR        float64
	SSE        float64
	SST        float64
	R2         float64
	AdjustedR2 float64
	StdErr     float64
	MAE        float64
	RMSE       float64

	Diagnostics []Diagnostic
}

// ValidationResult is the validator output, ordered by variable name.
type ValidationResult struct {
	Dependent string
	Variables []VariableValidation
}

// Variable returns the validation of name.
func (r ValidationResult) Variable(name string) (VariableValidation, bool) {
	for _, v := range r.Variables {
		if v.Variable == name {
			return v, true
		}
	}
	return VariableValidation{}, false
}

// Validator scores a published model against held-out examples.
type Validator struct {
	cfg     ValidationConfig
	logger  log.Logger
	metrics *telemetry.Metrics
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger.
func WithValidatorLogger(l log.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = l }
}

// WithValidatorMetrics sets the telemetry sink.
func WithValidatorMetrics(m *telemetry.Metrics) ValidatorOption {
	return func(v *Validator) { v.metrics = m }
}

// NewValidator checks cfg.
func NewValidator(cfg ValidationConfig, opts ...ValidatorOption) (*Validator, error) {
	if cfg.Dependent == "" {
		return nil, errors.NewValidationError("dependent", "is required", cfg.Dependent)
	}
	if len(cfg.Independents) == 0 {
		return nil, errors.NewValidationError("independents", "at least one is required", cfg.Independents)
	}
	if !cfg.From.IsZero() && !cfg.To.IsZero() && cfg.From.After(cfg.To) {
		return nil, errors.NewValidationError("validation", "from must not be after to",
			cfg.From.Format(value.DateLayout)+" > "+cfg.To.Format(value.DateLayout))
	}
	cfg.Independents = slices.Clone(cfg.Independents)

	v := &Validator{cfg: cfg}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = log.GetLoggerWithName("regression")
	}
	v.logger = v.logger.With(log.JobKey, ValidateJobName)
	return v, nil
}

// InRange reports whether t lies within [From, To].
func (v *Validator) InRange(t time.Time) bool {
	if !v.cfg.From.IsZero() && t.Before(v.cfg.From) {
		return false
	}
	if !v.cfg.To.IsZero() && t.After(v.cfg.To) {
		return false
	}
	return true
}

func (v *Validator) mapper(state model.ModelState) mapreduce.MapperFunc[record.Record, Diagnostic] {
	return func(_ context.Context, rec record.Record, out mapreduce.Emitter[Diagnostic]) error {
		date, err := rec.Date()
		if err != nil {
			errors.Warn(errors.NewSkippedRecordWarning(ValidateJobName, rec.Key, err.Error()))
			return nil
		}
		if !v.InRange(date) {
			return nil
		}
		yv, ok := rec.Get(v.cfg.Dependent)
		if !ok {
			errors.Warn(errors.NewSkippedRecordWarning(ValidateJobName, rec.Key, "no "+v.cfg.Dependent))
			return nil
		}
		y, err := yv.Float64()
		if err != nil {
			return errors.Wrapf(err, "dependent %s of %s", v.cfg.Dependent, rec.Key)
		}
		for _, xi := range v.cfg.Independents {
			xv, ok := rec.Get(xi)
			if !ok {
				continue
			}
			x, err := xv.Float64()
			if err != nil {
				return errors.Wrapf(err, "variable %s of %s", xi, rec.Key)
			}
			yHat := state.Predict(x)
			out.Emit(keytag.Name(xi), Diagnostic{
				Variable: xi,
				Date:     rec.Key,
				Y:        y,
				YHat:     yHat,
				Residual: y - yHat,
			})
		}
		return nil
	}
}

// reduce buffers every pair of a variable: the mean of y is needed before the
// sums of squares can be taken.
func (v *Validator) reduce(_ context.Context, key string, diags []Diagnostic, out mapreduce.Emitter[VariableValidation]) error {
	diags = slices.Clone(diags)
	slices.SortFunc(diags, func(a, b Diagnostic) int { return strings.Compare(a.Date, b.Date) })

	n := len(diags)
	ys := make([]float64, n)
	yHats := make([]float64, n)
	for i, d := range diags {
		ys[i], yHats[i] = d.Y, d.YHat
	}
	yVec := mat.NewVecDense(n, ys)
	yHatVec := mat.NewVecDense(n, yHats)

	sums, err := metrics.Sums(yVec, yHatVec)
	if err != nil {
		return errors.Wrapf(err, "validate %s", key)
	}
	mae, err := metrics.MAE(yVec, yHatVec)
	if err != nil {
		return err
	}
	rmse, err := metrics.RMSE(yVec, yHatVec)
	if err != nil {
		return err
	}

	k := len(v.cfg.Independents)
	r2 := sums.R2()
	res := VariableValidation{
		Variable:    keytag.Unname(key),
		N:           n,
		K:           k,
		Mean:        stat.Mean(ys, nil),
		SSR:         sums.SSR,
		SSE:         sums.SSE,
		SST:         sums.SST,
		R2:          r2,
		AdjustedR2:  metrics.AdjustedR2(r2, n, k),
		StdErr:      metrics.StandardError(sums.SSE, n, k),
		MAE:         mae,
		RMSE:        rmse,
		Diagnostics: diags,
	}
	out.Emit(key, res)
	return nil
}

// Validate scores state against the records within the date range.
func (v *Validator) Validate(ctx context.Context, state model.ModelState, records []record.Record) (ValidationResult, error) {
	start := time.Now()
	job := mapreduce.Job[record.Record, Diagnostic, VariableValidation]{
		Name:        ValidateJobName,
		Mapper:      v.mapper(state),
		Reducer:     mapreduce.ReducerFunc[Diagnostic, VariableValidation](v.reduce),
		MapTasks:    v.cfg.MapTasks,
		Partitions:  v.cfg.Partitions,
		Parallelism: v.cfg.Parallelism,
		Logger:      v.logger,
		Metrics:     v.metrics,
	}
	kvs, err := mapreduce.Run(ctx, job, records)
	if err != nil {
		return ValidationResult{}, err
	}
	if len(kvs) == 0 {
		return ValidationResult{}, errors.Wrap(errors.ErrEmptyData, "no examples in the validation range")
	}

	res := ValidationResult{Dependent: v.cfg.Dependent}
	for _, kv := range kvs {
		vv := kv.Value
		res.Variables = append(res.Variables, vv)
		v.metrics.ObserveValidation(vv.Variable, vv.R2)
		v.logger.Info("variable validated",
			log.FieldKey, vv.Variable,
			log.SamplesKey, vv.N,
			log.R2ScoreKey, vv.R2,
			log.AdjustedR2Key, vv.AdjustedR2,
			log.StdErrKey, vv.StdErr,
		)
	}
	v.logger.Debug("validation finished",
		log.RecordsInKey, len(records),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// WriteSummary writes one line per example followed by the variable's
// summary line, in the record text layout.
func WriteSummary(w io.Writer, res ValidationResult) error {
	dep := keytag.Name(res.Dependent)
	var lines []record.Record
	for _, vv := range res.Variables {
		name := keytag.Name(vv.Variable)
		for _, d := range vv.Diagnostics {
			lines = append(lines, record.New(name,
				record.Field{Name: "date", Value: value.NewString(d.Date)},
				record.Field{Name: dep, Value: value.NewFloat64(d.Y)},
				record.Field{Name: keytag.Tag(dep, keytag.YHAT), Value: value.NewFloat64(d.YHat)},
			))
		}
		lines = append(lines, record.New(name,
			record.Field{Name: "n", Value: value.NewInt64(int64(vv.N))},
			record.Field{Name: "r2", Value: value.NewFloat64(vv.R2)},
			record.Field{Name: "adjusted_r2", Value: value.NewFloat64(vv.AdjustedR2)},
			record.Field{Name: "std_error", Value: value.NewFloat64(vv.StdErr)},
			record.Field{Name: "ssr", Value: value.NewFloat64(vv.SSR)},
			record.Field{Name: "sse", Value: value.NewFloat64(vv.SSE)},
			record.Field{Name: "sst", Value: value.NewFloat64(vv.SST)},
			record.Field{Name: "mae", Value: value.NewFloat64(vv.MAE)},
			record.Field{Name: "rmse", Value: value.NewFloat64(vv.RMSE)},
		))
	}
	return record.Write(w, lines)
}

// WriteDiagnosticsCSV writes every validated example as CSV with a header.
func WriteDiagnosticsCSV(w io.Writer, res ValidationResult) error {
	var rows []Diagnostic
	for _, vv := range res.Variables {
		rows = append(rows, vv.Diagnostics...)
	}
	if len(rows) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "diagnostics csv")
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return errors.Wrap(err, "encode diagnostics")
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return errors.Wrap(err, "write diagnostics")
	}
	return nil
}

// ReadDiagnosticsCSV parses a file written by WriteDiagnosticsCSV.
func ReadDiagnosticsCSV(r io.Reader) ([]Diagnostic, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read diagnostics")
	}
	var rows []Diagnostic
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decode diagnostics")
	}
	return rows, nil
}
