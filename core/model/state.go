// Package model holds the regression model snapshot, the training phase
// tracker and the stores that publish a model between epochs.
package model

import (
	"maps"
	"math"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// ModelState is the read-only snapshot every task of one epoch works
// against. It is replaced, never mutated, when an epoch completes.
type ModelState struct {
	Epoch        int
	Weight       float64
	Bias         float64
	LearningRate float64

	// Counts holds per-field observation counts loaded once before training.
	Counts map[string]int64
}

// NewModelState creates the epoch-zero snapshot.
func NewModelState(weight, bias, learningRate float64, counts map[string]int64) ModelState {
	return ModelState{
		Weight:       weight,
		Bias:         bias,
		LearningRate: learningRate,
		Counts:       maps.Clone(counts),
	}
}

// Count returns the precomputed observation count for field.
func (s ModelState) Count(field string) (int64, bool) {
	n, ok := s.Counts[field]
	return n, ok
}

// RequireCounts fails with MissingCoefficientError on the first field that
// has no precomputed count.
func (s ModelState) RequireCounts(source string, fields ...string) error {
	for _, f := range fields {
		if _, ok := s.Counts[f]; !ok {
			return errors.NewMissingCoefficientError(f, source)
		}
	}
	return nil
}

// Next returns the snapshot for the following epoch. Counts are shared
// because they are never written after construction.
func (s ModelState) Next(weight, bias float64) ModelState {
	return ModelState{
		Epoch:        s.Epoch + 1,
		Weight:       weight,
		Bias:         bias,
		LearningRate: s.LearningRate,
		Counts:       s.Counts,
	}
}

// Predict returns w·x + b.
func (s ModelState) Predict(x float64) float64 {
	return s.Weight*x + s.Bias
}

// Validate rejects snapshots that cannot be trained or applied.
func (s ModelState) Validate() error {
	if err := errors.CheckNumericalStability("model.state", []float64{s.Weight, s.Bias, s.LearningRate}, s.Epoch); err != nil {
		return err
	}
	if s.LearningRate <= 0 || math.IsNaN(s.LearningRate) {
		return errors.NewValidationError("learning_rate", "must be positive", s.LearningRate)
	}
	return nil
}
