// Package mapreduce is an in-process map/combine/shuffle/reduce substrate.
//
// Inputs are split into map tasks that run in parallel. Each map task may run
// a combiner over its own output. Keys are hash-partitioned, every partition
// is reduced in parallel, and the final output is sorted by key so identical
// inputs always produce identical output.
//
// Map, combine and reduce functions must be pure: values for a key reach the
// reducer in no particular order and a task may be re-run.
package mapreduce

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/YuminosukeSato/seriesml/core/parallel"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/pkg/telemetry"
)

// KV is one emitted key/value pair.
type KV[V any] struct {
	Key   string
	Value V
}

// Emitter receives pairs from a map or reduce function.
type Emitter[V any] interface {
	Emit(key string, v V)
}

// Mapper turns one input into zero or more pairs.
type Mapper[I, V any] interface {
	Map(ctx context.Context, in I, out Emitter[V]) error
}

// MapperFunc adapts a function to Mapper.
type MapperFunc[I, V any] func(ctx context.Context, in I, out Emitter[V]) error

// Map implements Mapper.
func (f MapperFunc[I, V]) Map(ctx context.Context, in I, out Emitter[V]) error {
	return f(ctx, in, out)
}

// Reducer folds all values of one key. A combiner is a Reducer[V, V].
type Reducer[V, O any] interface {
	Reduce(ctx context.Context, key string, values []V, out Emitter[O]) error
}

// ReducerFunc adapts a function to Reducer.
type ReducerFunc[V, O any] func(ctx context.Context, key string, values []V, out Emitter[O]) error

// Reduce implements Reducer.
func (f ReducerFunc[V, O]) Reduce(ctx context.Context, key string, values []V, out Emitter[O]) error {
	return f(ctx, key, values, out)
}

// Job describes one map/reduce pass.
type Job[I, V, O any] struct {
	Name     string
	Mapper   Mapper[I, V]
	Combiner Reducer[V, V] // optional
	Reducer  Reducer[V, O]

	// MapTasks is the number of input splits; <= 0 means one per CPU.
	MapTasks int
	// Partitions is the number of reduce partitions; <= 0 means one per CPU.
	Partitions int
	// Parallelism bounds concurrently running tasks; <= 0 means unbounded.
	Parallelism int
	// ShuffleSeed, when non-zero, permutes the values of every key before
	// reduce.
	ShuffleSeed uint64

	Logger  log.Logger
	Metrics *telemetry.Metrics
}

// collector is the Emitter handed to task functions. Tasks are
// single-threaded, so no locking.
type collector[V any] struct {
	pairs []KV[V]
}

func (c *collector[V]) Emit(key string, v V) {
	c.pairs = append(c.pairs, KV[V]{Key: key, Value: v})
}

// Run executes job over inputs.
func Run[I, V, O any](ctx context.Context, job Job[I, V, O], inputs []I) ([]KV[O], error) {
	if job.Mapper == nil || job.Reducer == nil {
		return nil, errors.NewValidationError("job", "mapper and reducer are required", job.Name)
	}
	logger := job.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("mapreduce")
	}
	logger = logger.With(log.JobKey, job.Name)
	start := time.Now()

	partitions := job.Partitions
	if partitions <= 0 {
		partitions = runtime.NumCPU()
	}
	job.Metrics.RecordsIn(job.Name, len(inputs))

	mapped, err := runMapPhase(ctx, job, inputs, partitions, logger)
	if err != nil {
		logger.Error("map phase failed", log.ErrAttrKey, err)
		return nil, err
	}

	out, err := runReducePhase(ctx, job, mapped, logger)
	if err != nil {
		logger.Error("reduce phase failed", log.ErrAttrKey, err)
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	job.Metrics.RecordsOut(job.Name, len(out))
	logger.Debug("job finished",
		log.RecordsInKey, len(inputs),
		log.RecordsOutKey, len(out),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// runMapPhase returns, per map task, the task output already bucketed by
// partition.
func runMapPhase[I, V, O any](ctx context.Context, job Job[I, V, O], inputs []I, partitions int, logger log.Logger) ([][][]KV[V], error) {
	splits := parallel.Split(len(inputs), job.MapTasks)
	buckets := make([][][]KV[V], len(splits))

	err := parallel.ForEach(ctx, splits, job.Parallelism, func(ctx context.Context, task int, r parallel.Range) error {
		taskStart := time.Now()
		err := errors.SafeExecute(job.Name+".map", func() error {
			c := &collector[V]{}
			for _, in := range inputs[r.Start:r.End] {
				if err := job.Mapper.Map(ctx, in, c); err != nil {
					return err
				}
			}
			pairs := c.pairs
			if job.Combiner != nil {
				combineStart := time.Now()
				combined, err := combine(ctx, job.Combiner, pairs)
				job.Metrics.ObserveTask(job.Name, telemetry.PhaseCombine, time.Since(combineStart), err)
				if err != nil {
					return err
				}
				pairs = combined
			}
			buckets[task] = partition(pairs, partitions)
			return nil
		})
		job.Metrics.ObserveTask(job.Name, telemetry.PhaseMap, time.Since(taskStart), err)
		if err != nil {
			return errors.Wrapf(err, "%s: map task %d", job.Name, task)
		}
		logger.Debug("map task finished", log.TaskKey, task, log.RecordsInKey, r.Len())
		return nil
	})
	return buckets, err
}

func runReducePhase[I, V, O any](ctx context.Context, job Job[I, V, O], mapped [][][]KV[V], logger log.Logger) ([]KV[O], error) {
	partitions := 0
	if len(mapped) > 0 {
		partitions = len(mapped[0])
	}
	outputs := make([][]KV[O], partitions)
	ranges := make([]parallel.Range, partitions)
	for p := range ranges {
		ranges[p] = parallel.Range{Start: p, End: p + 1}
	}

	err := parallel.ForEach(ctx, ranges, job.Parallelism, func(ctx context.Context, p int, _ parallel.Range) error {
		taskStart := time.Now()
		err := errors.SafeExecute(job.Name+".reduce", func() error {
			var pairs []KV[V]
			for _, task := range mapped {
				pairs = append(pairs, task[p]...)
			}
			keys, groups := group(pairs)
			c := &collector[O]{}
			for _, key := range keys {
				values := groups[key]
				if job.ShuffleSeed != 0 {
					shuffle(values, job.ShuffleSeed, key)
				}
				if err := job.Reducer.Reduce(ctx, key, values, c); err != nil {
					return errors.Wrapf(err, "reduce key %q", key)
				}
			}
			outputs[p] = c.pairs
			logger.Debug("partition reduced",
				log.PartitionKey, p,
				log.KeysKey, len(keys),
				log.RecordsOutKey, len(c.pairs),
			)
			return nil
		})
		job.Metrics.ObserveTask(job.Name, telemetry.PhaseReduce, time.Since(taskStart), err)
		if err != nil {
			return errors.Wrapf(err, "%s: reduce partition %d", job.Name, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []KV[O]
	for _, o := range outputs {
		out = append(out, o...)
	}
	return out, nil
}

func combine[V any](ctx context.Context, combiner Reducer[V, V], pairs []KV[V]) ([]KV[V], error) {
	keys, groups := group(pairs)
	c := &collector[V]{}
	for _, key := range keys {
		if err := combiner.Reduce(ctx, key, groups[key], c); err != nil {
			return nil, errors.Wrapf(err, "combine key %q", key)
		}
	}
	return c.pairs, nil
}

// group collects values per key and returns the keys sorted.
func group[V any](pairs []KV[V]) ([]string, map[string][]V) {
	groups := make(map[string][]V)
	for _, kv := range pairs {
		groups[kv.Key] = append(groups[kv.Key], kv.Value)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

func partition[V any](pairs []KV[V], partitions int) [][]KV[V] {
	buckets := make([][]KV[V], partitions)
	for _, kv := range pairs {
		p := PartitionOf(kv.Key, partitions)
		buckets[p] = append(buckets[p], kv)
	}
	return buckets
}

// PartitionOf returns the reduce partition of key.
func PartitionOf(key string, partitions int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(partitions))
}

func shuffle[V any](values []V, seed uint64, key string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	rng := rand.New(rand.NewPCG(seed, h.Sum64()))
	rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
}
