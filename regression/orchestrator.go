package regression

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/seriesml/core/model"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/pkg/telemetry"
)

// EpochCallback is called after an epoch's model has been published.
type EpochCallback func(res EpochResult, doc *model.Document) error

// Orchestrator drives epochs as a plain loop over the phases
// Init → Running(n) → Converged | Failed. Epoch n+1 is only mapped after the
// model of epoch n has been published to the store.
type Orchestrator struct {
	trainer   *Trainer
	conds     StopConditions
	stops     []StopCondition
	store     model.Store
	tracker   *model.PhaseTracker
	runID     string
	logger    log.Logger
	metrics   *telemetry.Metrics
	callbacks []EpochCallback

	history []EpochResult
	final   *model.Document
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRunID overrides the generated run id.
func WithRunID(id string) OrchestratorOption {
	return func(o *Orchestrator) { o.runID = id }
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(l log.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithOrchestratorMetrics sets the telemetry sink.
func WithOrchestratorMetrics(m *telemetry.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEpochCallback adds a callback run after every published epoch.
func WithEpochCallback(cb EpochCallback) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks = append(o.callbacks, cb) }
}

// NewOrchestrator fails with a ValidationError when no stop condition is
// configured.
func NewOrchestrator(trainer *Trainer, stops StopConditions, store model.Store, opts ...OrchestratorOption) (*Orchestrator, error) {
	if trainer == nil {
		return nil, errors.NewValidationError("trainer", "is required", nil)
	}
	if store == nil {
		return nil, errors.NewValidationError("store", "is required", nil)
	}
	if err := stops.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		trainer: trainer,
		conds:   stops,
		stops:   stops.Build(),
		store:   store,
		tracker: model.NewPhaseTracker(),
		runID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("orchestrator")
	}
	o.logger = o.logger.With(log.RunIDKey, o.runID)
	return o, nil
}

// RunID identifies the run in the model store.
func (o *Orchestrator) RunID() string { return o.runID }

// Phase returns the current phase and epoch.
func (o *Orchestrator) Phase() model.PhaseState { return o.tracker.GetState() }

// History returns the results of every completed epoch.
func (o *Orchestrator) History() []EpochResult { return o.history }

// Costs returns the cost of every completed epoch.
func (o *Orchestrator) Costs() []float64 {
	costs := make([]float64, len(o.history))
	for i, r := range o.history {
		costs[i] = r.Cost
	}
	return costs
}

// Final returns the converged model document, or NotFittedError while the run
// has not converged.
func (o *Orchestrator) Final() (*model.Document, error) {
	if err := o.tracker.RequireFitted("Final"); err != nil {
		return nil, err
	}
	return o.final, nil
}

// Run trains from initial until a stop condition holds.
func (o *Orchestrator) Run(ctx context.Context, initial model.ModelState, records []record.Record) (_ *model.Document, err error) {
	if o.tracker.Phase() != model.PhaseInit {
		return nil, errors.NewValueError("Orchestrator.Run", "a run can only be started once")
	}
	defer func() {
		if err != nil {
			o.tracker.Fail(err)
			o.logger.Error("training failed", log.EpochKey, o.tracker.Epoch(), log.ErrAttrKey, err)
		}
	}()
	defer errors.Recover(&err, "Orchestrator.Run")

	if initial.Epoch != 0 {
		return nil, errors.NewValidationError("initial", "training starts from an epoch-zero snapshot", initial.Epoch)
	}
	cfg := o.trainer.Config()
	state := initial
	start := time.Now()
	o.logger.Info("training started",
		log.SamplesKey, len(records),
		log.FeaturesKey, len(cfg.Independents),
		log.LearningRateKey, state.LearningRate,
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "training cancelled")
		}
		if err := o.tracker.BeginEpoch(state.Epoch + 1); err != nil {
			return nil, err
		}

		res, err := o.trainer.RunEpoch(ctx, state, records)
		if err != nil {
			return nil, errors.Wrapf(err, "epoch %d", state.Epoch+1)
		}
		o.history = append(o.history, res)
		o.metrics.ObserveEpoch(res.Cost, res.Weight, res.Bias)

		reason := checkStop(o.stops, res)
		state = state.Next(res.Weight, res.Bias)
		doc := model.NewDocument(o.runID, state, res.Cost, cfg.Dependent, cfg.Independents)
		doc.StopReason = reason
		doc.PublishedAt = time.Now().UTC()
		if err := o.store.Publish(ctx, doc); err != nil {
			return nil, errors.Wrapf(err, "publish epoch %d", state.Epoch)
		}
		o.final = doc

		o.logger.Info("epoch published",
			log.EpochKey, state.Epoch,
			log.LossKey, res.Cost,
			log.WeightKey, res.Weight,
			log.BiasKey, res.Bias,
			log.DurationMsKey, res.Elapsed.Milliseconds(),
		)
		for _, cb := range o.callbacks {
			if err := cb(res, doc); err != nil {
				return nil, errors.Wrapf(err, "epoch %d callback", state.Epoch)
			}
		}

		if reason != "" {
			if o.conds.limitOnly(res, reason) {
				errors.Warn(errors.NewConvergenceWarning(TrainJobName, state.Epoch,
					fmt.Sprintf("stopped on the epoch limit with cost %g", res.Cost)))
			}
			if err := o.tracker.Converge(reason); err != nil {
				return nil, err
			}
			o.logger.Info("training converged",
				log.EpochKey, state.Epoch,
				log.StopReasonKey, reason,
				log.DurationMsKey, time.Since(start).Milliseconds(),
			)
			return doc, nil
		}
	}
}
