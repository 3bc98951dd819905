// Package telemetry exposes Prometheus metrics for map/reduce jobs and
// training epochs.
//
// Metrics:
//
//   - seriesml_job_records_total{job,direction}: records entering and leaving a job
//   - seriesml_task_duration_seconds{job,phase}: map/combine/reduce task durations
//   - seriesml_task_failures_total{job,phase}: failed tasks
//   - seriesml_training_epochs_total: completed epochs
//   - seriesml_training_cost: cost of the latest epoch
//   - seriesml_model_weight / seriesml_model_bias: latest published model
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seriesml"

// Task phases.
const (
	PhaseMap     = "map"
	PhaseCombine = "combine"
	PhaseReduce  = "reduce"
)

// Metrics holds every collector the pipeline updates.
type Metrics struct {
	records       *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	taskFailures  *prometheus.CounterVec
	epochs        prometheus.Counter
	cost          prometheus.Gauge
	weight        prometheus.Gauge
	bias          prometheus.Gauge
	validationsR2 *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration, which is convenient in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "records_total",
			Help:      "Records entering (in) and leaving (out) a map/reduce job.",
		}, []string{"job", "direction"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "duration_seconds",
			Help:      "Duration of map, combine and reduce tasks.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"job", "phase"}),
		taskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "failures_total",
			Help:      "Tasks that returned an error or panicked.",
		}, []string{"job", "phase"}),
		epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "epochs_total",
			Help:      "Completed gradient descent epochs.",
		}),
		cost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "cost",
			Help:      "Mean squared error of the latest epoch.",
		}),
		weight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "weight",
			Help:      "Weight of the latest published model.",
		}),
		bias: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "bias",
			Help:      "Bias of the latest published model.",
		}),
		validationsR2: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "r2",
			Help:      "Coefficient of determination per independent variable.",
		}, []string{"variable"}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.records, m.taskDuration, m.taskFailures,
		m.epochs, m.cost, m.weight, m.bias, m.validationsR2,
	}
}

// RecordsIn counts n input records for job.
func (m *Metrics) RecordsIn(job string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(job, "in").Add(float64(n))
}

// RecordsOut counts n output records for job.
func (m *Metrics) RecordsOut(job string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(job, "out").Add(float64(n))
}

// ObserveTask records the duration of one task and whether it failed.
func (m *Metrics) ObserveTask(job, phase string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(job, phase).Observe(d.Seconds())
	if err != nil {
		m.taskFailures.WithLabelValues(job, phase).Inc()
	}
}

// ObserveEpoch records a completed epoch and the model it published.
func (m *Metrics) ObserveEpoch(cost, weight, bias float64) {
	if m == nil {
		return
	}
	m.epochs.Inc()
	m.cost.Set(cost)
	m.weight.Set(weight)
	m.bias.Set(bias)
}

// ObserveValidation records the R² of one independent variable.
func (m *Metrics) ObserveValidation(variable string, r2 float64) {
	if m == nil {
		return
	}
	m.validationsR2.WithLabelValues(variable).Set(r2)
}
