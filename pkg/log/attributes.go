// Standard attribute keys for pipeline logging.
//
// Keys follow a dotted hierarchy ("job.name", "data.records") so logs from
// different stages can be filtered and joined on the same fields.

package log

// Stage and job context
const (
	// ComponentKey identifies the package emitting the log line.
	// Examples: "stats", "regression", "mapreduce"
	ComponentKey = "component"

	// JobKey names the map/reduce job.
	// Examples: "stats.aggregate", "regression.epoch", "regression.validate"
	JobKey = "job.name"

	// TaskKey identifies a map or reduce task within a job.
	TaskKey = "job.task"

	// PartitionKey is the reduce partition index.
	PartitionKey = "job.partition"

	// PhaseKey is the orchestrator phase.
	// Values: "init", "running", "converged", "failed"
	PhaseKey = "job.phase"

	// RunIDKey identifies one training run across epochs.
	RunIDKey = "run.id"
)

// Data shape
const (
	// RecordsInKey is the number of input records seen by a job or task.
	RecordsInKey = "data.records_in"

	// RecordsOutKey is the number of key/value pairs a job or task emitted.
	RecordsOutKey = "data.records_out"

	// KeysKey is the number of distinct keys reduced.
	KeysKey = "data.keys"

	// FieldKey names a feature field.
	FieldKey = "data.field"

	// SamplesKey is the number of examples used by a computation.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of independent variables.
	FeaturesKey = "data.features"
)

// Training and validation
const (
	// EpochKey is the current epoch number.
	EpochKey = "training.epoch"

	// LossKey is the epoch cost.
	LossKey = "metrics.loss"

	// WeightKey and BiasKey describe the model snapshot.
	WeightKey = "model.weight"
	BiasKey   = "model.bias"

	// LearningRateKey is the gradient descent step size.
	LearningRateKey = "hyperparams.learning_rate"

	// StopReasonKey says which stop condition ended training.
	StopReasonKey = "training.stop_reason"

	// R2ScoreKey is the coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// AdjustedR2Key is the adjusted coefficient of determination.
	AdjustedR2Key = "metrics.adjusted_r2"

	// StdErrKey is the standard error of the regression.
	StdErrKey = "metrics.std_err"
)

// Performance
const (
	// DurationMsKey is the elapsed time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error context
const (
	// ErrorTypeKey categorizes the error or warning.
	ErrorTypeKey = "error.type"

	// SuggestionKey carries a hint for resolving the problem.
	SuggestionKey = "error.suggestion"
)
