// Package regression trains and validates the per-variable gradient-descent
// linear regressor.
//
// Every independent variable x_i is scored on its own against the dependent
// y with the shared (weight, bias) pair: ŷ = w·x_i + b. One epoch is a single
// map/reduce pass over the training examples; the Orchestrator drives epochs
// until a stop condition holds.
package regression

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/YuminosukeSato/seriesml/core/keytag"
	"github.com/YuminosukeSato/seriesml/core/mapreduce"
	"github.com/YuminosukeSato/seriesml/core/model"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/pkg/telemetry"
)

// TrainJobName labels trainer logs and metrics.
const TrainJobName = "regression.train"

// TrainerConfig is the immutable part of a training run.
type TrainerConfig struct {
	Dependent    string
	Independents []string

	// CountsSource names where the precomputed counts came from, for errors.
	CountsSource string

	MapTasks    int
	Partitions  int
	Parallelism int
	ShuffleSeed uint64
}

// VariableResult holds the per-variable terms of one epoch.
type VariableResult struct {
	Name   string
	Count  int64
	SumPDW float64
	SumSE  float64
	// Cost is SumSE / Count.
	Cost float64
}

// EpochResult is the reduced output of one epoch.
type EpochResult struct {
	Epoch int
	// N is the pooled observation count the sums are divided by.
	N       int64
	SumSE   float64
	SumPDW  float64
	SumPDB  float64
	SumErr  float64
	Cost    float64
	Weight  float64
	Bias    float64
	Elapsed time.Duration

	Variables []VariableResult
}

// Trainer runs single epochs.
type Trainer struct {
	cfg     TrainerConfig
	logger  log.Logger
	metrics *telemetry.Metrics
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithTrainerLogger sets the logger.
func WithTrainerLogger(l log.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = l }
}

// WithTrainerMetrics sets the telemetry sink.
func WithTrainerMetrics(m *telemetry.Metrics) TrainerOption {
	return func(t *Trainer) { t.metrics = m }
}

// NewTrainer checks cfg against the initial snapshot. A variable without a
// precomputed count fails here, before any example is read.
func NewTrainer(cfg TrainerConfig, state model.ModelState, opts ...TrainerOption) (*Trainer, error) {
	if cfg.Dependent == "" {
		return nil, errors.NewValidationError("dependent", "is required", cfg.Dependent)
	}
	if len(cfg.Independents) == 0 {
		return nil, errors.NewValidationError("independents", "at least one is required", cfg.Independents)
	}
	if slices.Contains(cfg.Independents, cfg.Dependent) {
		return nil, errors.NewValidationError("independents", "must not contain the dependent variable", cfg.Dependent)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if err := state.RequireCounts(cfg.CountsSource, cfg.Independents...); err != nil {
		return nil, err
	}
	cfg.Independents = slices.Clone(cfg.Independents)

	t := &Trainer{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("regression")
	}
	t.logger = t.logger.With(log.JobKey, TrainJobName)
	return t, nil
}

// Config returns the trainer configuration.
func (t *Trainer) Config() TrainerConfig { return t.cfg }

// epochKey is the single reduce key of an epoch.
func epochKey(epoch int) string { return "epoch:" + strconv.Itoa(epoch) }

func (t *Trainer) mapper(state model.ModelState) mapreduce.MapperFunc[record.Record, record.Record] {
	dep := keytag.Name(t.cfg.Dependent)
	key := epochKey(state.Epoch + 1)

	return func(_ context.Context, rec record.Record, out mapreduce.Emitter[record.Record]) error {
		yv, ok := rec.Get(t.cfg.Dependent)
		if !ok {
			errors.Warn(errors.NewSkippedRecordWarning(TrainJobName, rec.Key, "no "+t.cfg.Dependent))
			return nil
		}
		y, err := yv.Float64()
		if err != nil {
			return errors.Wrapf(err, "dependent %s of %s", t.cfg.Dependent, rec.Key)
		}
		for _, xi := range t.cfg.Independents {
			xv, ok := rec.Get(xi)
			if !ok {
				errors.Warn(errors.NewSkippedRecordWarning(TrainJobName, rec.Key, "no "+xi))
				continue
			}
			x, err := xv.Float64()
			if err != nil {
				return errors.Wrapf(err, "variable %s of %s", xi, rec.Key)
			}
			n, _ := state.Count(xi)

			yHat := state.Predict(x)
			e := y - yHat
			if err := errors.CheckScalar(TrainJobName+": squared error of "+xi, e*e, state.Epoch+1); err != nil {
				return err
			}
			name := keytag.Name(xi)
			out.Emit(key, record.New(key,
				record.Field{Name: keytag.Tag(name, keytag.PDW), Value: value.NewFloat64(-2 * x * e)},
				record.Field{Name: keytag.Tag(dep, keytag.ERR), Value: value.NewFloat64(e)},
				record.Field{Name: keytag.Tag(dep, keytag.PDB), Value: value.NewFloat64(-2 * e)},
				record.Field{Name: keytag.Tag(keytag.Tag(name, keytag.ERR), keytag.SQ), Value: value.NewFloat64(e * e)},
				record.Field{Name: keytag.Tag(name, keytag.CNT), Value: value.NewInt64(n)},
			))
		}
		return nil
	}
}

// foldTerms merges epoch records field by field: CNT fields carry the same
// precomputed count everywhere and are kept, every other field is summed.
// Output fields are sorted by name.
func foldTerms(key string, recs []record.Record) (record.Record, error) {
	acc := make(map[string]value.Value)
	for _, r := range recs {
		for _, f := range r.Fields {
			cur, ok := acc[f.Name]
			if !ok {
				acc[f.Name] = f.Value
				continue
			}
			parts, err := keytag.Split(f.Name)
			if err != nil {
				return record.Record{}, err
			}
			if parts.Metric() == keytag.CNT {
				if !cur.Equal(f.Value) {
					return record.Record{}, errors.NewValueError(TrainJobName,
						"conflicting counts for "+parts.Base+": "+cur.String()+" and "+f.Value.String())
				}
				continue
			}
			sum, err := cur.Add(f.Value)
			if err != nil {
				return record.Record{}, errors.Wrapf(err, "fold %s", f.Name)
			}
			acc[f.Name] = sum
		}
	}

	names := make([]string, 0, len(acc))
	for n := range acc {
		names = append(names, n)
	}
	slices.Sort(names)
	out := record.New(key)
	for _, n := range names {
		out.Fields = append(out.Fields, record.Field{Name: n, Value: acc[n]})
	}
	return out, nil
}

func combineTerms(_ context.Context, key string, recs []record.Record, out mapreduce.Emitter[record.Record]) error {
	folded, err := foldTerms(key, recs)
	if err != nil {
		return err
	}
	out.Emit(key, folded)
	return nil
}

func floatField(r record.Record, name string) float64 {
	v, ok := r.Get(name)
	if !ok {
		return 0
	}
	f, _ := v.Float64()
	return f
}

func (t *Trainer) reducer(state model.ModelState) mapreduce.ReducerFunc[record.Record, EpochResult] {
	dep := keytag.Name(t.cfg.Dependent)

	return func(_ context.Context, key string, recs []record.Record, out mapreduce.Emitter[EpochResult]) error {
		folded, err := foldTerms(key, recs)
		if err != nil {
			return err
		}

		res := EpochResult{
			Epoch:  state.Epoch + 1,
			SumPDB: floatField(folded, keytag.Tag(dep, keytag.PDB)),
			SumErr: floatField(folded, keytag.Tag(dep, keytag.ERR)),
		}
		for _, xi := range t.cfg.Independents {
			name := keytag.Name(xi)
			cnt, seen := folded.Get(keytag.Tag(name, keytag.CNT))
			if !seen {
				continue
			}
			vr := VariableResult{
				Name:   xi,
				Count:  cnt.Int64(),
				SumPDW: floatField(folded, keytag.Tag(name, keytag.PDW)),
				SumSE:  floatField(folded, keytag.Tag(keytag.Tag(name, keytag.ERR), keytag.SQ)),
			}
			if vr.Count > 0 {
				vr.Cost = vr.SumSE / float64(vr.Count)
			}
			res.N += vr.Count
			res.SumPDW += vr.SumPDW
			res.SumSE += vr.SumSE
			res.Variables = append(res.Variables, vr)
		}
		if res.N == 0 {
			return errors.NewZeroDivisionError(TrainJobName + ": pooled count")
		}

		n := float64(res.N)
		lr := state.LearningRate
		res.Cost = res.SumSE / n
		res.Weight = state.Weight - (res.SumPDW/n)*lr
		res.Bias = state.Bias - (res.SumPDB/n)*lr
		if err := errors.CheckNumericalStability(TrainJobName,
			[]float64{res.Cost, res.Weight, res.Bias}, res.Epoch); err != nil {
			return err
		}
		out.Emit(key, res)
		return nil
	}
}

// Job describes one epoch against state as a map/reduce job.
func (t *Trainer) Job(state model.ModelState) mapreduce.Job[record.Record, record.Record, EpochResult] {
	return mapreduce.Job[record.Record, record.Record, EpochResult]{
		Name:        TrainJobName,
		Mapper:      t.mapper(state),
		Combiner:    mapreduce.ReducerFunc[record.Record, record.Record](combineTerms),
		Reducer:     t.reducer(state),
		MapTasks:    t.cfg.MapTasks,
		Partitions:  t.cfg.Partitions,
		Parallelism: t.cfg.Parallelism,
		ShuffleSeed: t.cfg.ShuffleSeed,
		Logger:      t.logger,
		Metrics:     t.metrics,
	}
}

// RunEpoch runs one epoch over records with the fixed snapshot state.
func (t *Trainer) RunEpoch(ctx context.Context, state model.ModelState, records []record.Record) (EpochResult, error) {
	start := time.Now()
	kvs, err := mapreduce.Run(ctx, t.Job(state), records)
	if err != nil {
		return EpochResult{}, err
	}
	if len(kvs) == 0 {
		return EpochResult{}, errors.Wrapf(errors.ErrEmptyData, "epoch %d: no usable examples", state.Epoch+1)
	}
	res := kvs[0].Value
	res.Elapsed = time.Since(start)

	t.logger.Debug("epoch reduced",
		log.EpochKey, res.Epoch,
		log.SamplesKey, res.N,
		log.LossKey, res.Cost,
		log.WeightKey, res.Weight,
		log.BiasKey, res.Bias,
	)
	return res, nil
}
