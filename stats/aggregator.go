// Package stats computes descriptive statistics over feature records.
//
// The Aggregator is a map/reduce job: the map phase emits every tracked value,
// its square and the product with every other tracked field; the reduce phase
// folds them into sum, count, zero count, mean and, for plain fields, min and
// max. Summary derives mean, variance and standard deviation from that output.
package stats

import (
	"context"
	"time"

	"github.com/YuminosukeSato/seriesml/core/keytag"
	"github.com/YuminosukeSato/seriesml/core/mapreduce"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/pkg/telemetry"
)

// JobName labels aggregator logs and metrics.
const JobName = "stats.aggregate"

// Aggregator is the statistics map/reduce job.
type Aggregator struct {
	selector    record.Selector
	rounding    value.Rounding
	combine     bool
	mapTasks    int
	partitions  int
	parallelism int
	shuffleSeed uint64
	logger      log.Logger
	metrics     *telemetry.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSelector sets the fields the mapper works on.
func WithSelector(s record.Selector) Option {
	return func(a *Aggregator) { a.selector = s }
}

// WithRounding sets the rounding applied to BigDecimal means.
func WithRounding(r value.Rounding) Option {
	return func(a *Aggregator) { a.rounding = r }
}

// WithCombiner enables or disables the map-side combiner.
func WithCombiner(enabled bool) Option {
	return func(a *Aggregator) { a.combine = enabled }
}

// WithLayout sets the number of map tasks, reduce partitions and the bound
// on concurrently running tasks.
func WithLayout(mapTasks, partitions, parallelism int) Option {
	return func(a *Aggregator) {
		a.mapTasks, a.partitions, a.parallelism = mapTasks, partitions, parallelism
	}
}

// WithShuffleSeed permutes reducer input order.
func WithShuffleSeed(seed uint64) Option {
	return func(a *Aggregator) { a.shuffleSeed = seed }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithMetrics sets the telemetry sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator tracks the named fields.
func NewAggregator(tracked []string, opts ...Option) *Aggregator {
	a := &Aggregator{
		selector: record.Tracked(tracked),
		rounding: value.DefaultRounding,
		combine:  true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.GetLoggerWithName("stats")
	}
	a.logger = a.logger.With(log.JobKey, JobName)
	return a
}

// Map emits, for every selected numeric field f: (f, v), (f-SQ, v²) and, for
// every other selected field g of the same kind ordered after f,
// (f+g-PRD, v_f·v_g).
func (a *Aggregator) Map(_ context.Context, rec record.Record, out mapreduce.Emitter[Partial]) error {
	fields := a.selector.Select(rec)
	numeric := fields[:0:0]
	for _, f := range fields {
		if !f.Value.Kind().Numeric() {
			errors.Warn(errors.NewSkippedRecordWarning(JobName, rec.Key,
				"field "+f.Name+" is "+f.Value.Kind().String()))
			continue
		}
		numeric = append(numeric, f)
	}

	for _, f := range numeric {
		name := keytag.Name(f.Name)
		out.Emit(name, Observe(f.Value, true))

		sq, err := f.Value.Mul(f.Value)
		if err != nil {
			return err
		}
		out.Emit(keytag.Tag(name, keytag.SQ), Observe(sq, false))

		for _, g := range numeric {
			if !keytag.Canonical(f.Name, g.Name) {
				continue
			}
			if f.Value.Kind() != g.Value.Kind() {
				errors.Warn(errors.NewSkippedRecordWarning(JobName, rec.Key,
					"no product of "+f.Name+" and "+g.Name+": kinds differ"))
				continue
			}
			prd, err := f.Value.Mul(g.Value)
			if err != nil {
				return errors.Wrapf(err, "product of %s and %s", f.Name, g.Name)
			}
			out.Emit(keytag.Tag(keytag.Pair(name, keytag.Name(g.Name)), keytag.PRD), Observe(prd, false))
		}
	}
	return nil
}

// Combine merges the partials of one key on the map side.
func (a *Aggregator) Combine(_ context.Context, key string, values []Partial, out mapreduce.Emitter[Partial]) error {
	merged, err := MergeAll(values)
	if err != nil {
		return err
	}
	out.Emit(key, merged)
	return nil
}

// Reduce folds all partials of one key into an output record.
func (a *Aggregator) Reduce(_ context.Context, key string, values []Partial, out mapreduce.Emitter[record.Record]) error {
	p, err := MergeAll(values)
	if err != nil {
		return err
	}
	rec, err := a.Finish(key, p)
	if err != nil {
		return err
	}
	out.Emit(key, rec)
	return nil
}

// Finish renders a merged partial as an output record: sum, count, zero and
// mean, plus min and max when the partial tracks extrema.
func (a *Aggregator) Finish(key string, p Partial) (record.Record, error) {
	mean, err := p.Mean(a.rounding)
	if err != nil {
		return record.Record{}, errors.Wrapf(err, "mean of %s", key)
	}
	rec := record.New(key,
		record.Field{Name: keytag.SUM.Label(), Value: p.Sum},
		record.Field{Name: keytag.CNT.Label(), Value: value.NewInt64(p.Count)},
		record.Field{Name: keytag.ZERO.Label(), Value: value.NewInt64(p.Zeros)},
		record.Field{Name: keytag.MEAN.Label(), Value: mean},
	)
	if p.HasExtrema {
		rec.Fields = append(rec.Fields,
			record.Field{Name: keytag.MIN.Label(), Value: p.Min},
			record.Field{Name: keytag.MAX.Label(), Value: p.Max},
		)
	}
	return rec, nil
}

// Job describes the aggregator as a map/reduce job.
func (a *Aggregator) Job() mapreduce.Job[record.Record, Partial, record.Record] {
	job := mapreduce.Job[record.Record, Partial, record.Record]{
		Name:        JobName,
		Mapper:      mapreduce.MapperFunc[record.Record, Partial](a.Map),
		Reducer:     mapreduce.ReducerFunc[Partial, record.Record](a.Reduce),
		MapTasks:    a.mapTasks,
		Partitions:  a.partitions,
		Parallelism: a.parallelism,
		ShuffleSeed: a.shuffleSeed,
		Logger:      a.logger,
		Metrics:     a.metrics,
	}
	if a.combine {
		job.Combiner = mapreduce.ReducerFunc[Partial, Partial](a.Combine)
	}
	return job
}

// Run aggregates records and returns one output record per key, sorted by
// key.
func (a *Aggregator) Run(ctx context.Context, records []record.Record) ([]record.Record, error) {
	start := time.Now()
	kvs, err := mapreduce.Run(ctx, a.Job(), records)
	if err != nil {
		return nil, err
	}
	out := make([]record.Record, len(kvs))
	for i, kv := range kvs {
		out[i] = kv.Value
	}
	a.logger.Info("aggregation finished",
		log.RecordsInKey, len(records),
		log.KeysKey, len(out),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}
