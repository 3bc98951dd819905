package model

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// DocumentVersion is written into every published model document.
const DocumentVersion = "1"

// ModelType names the model family in a document.
const ModelType = "LinearRegressor"

// Document is the published form of a model snapshot.
type Document struct {
	// ModelType is always ModelType.
	ModelType string `json:"model_type"`

	// Version guards compatibility of stored documents.
	Version string `json:"version"`

	// RunID groups the epochs of one training run.
	RunID string `json:"run_id"`

	Epoch        int     `json:"epoch"`
	Weight       float64 `json:"weight"`
	Bias         float64 `json:"bias"`
	LearningRate float64 `json:"learning_rate"`

	// Cost is the mean squared error of the epoch that produced the model.
	Cost float64 `json:"cost"`

	Dependent    string           `json:"dependent"`
	Independents []string         `json:"independents"`
	Counts       map[string]int64 `json:"counts,omitempty"`

	// StopReason is set on the final document of a converged run.
	StopReason string `json:"stop_reason,omitempty"`

	PublishedAt time.Time `json:"published_at"`

	IsFitted bool `json:"is_fitted"`
}

// NewDocument captures state as a document.
func NewDocument(runID string, state ModelState, cost float64, dependent string, independents []string) *Document {
	return &Document{
		ModelType:    ModelType,
		Version:      DocumentVersion,
		RunID:        runID,
		Epoch:        state.Epoch,
		Weight:       state.Weight,
		Bias:         state.Bias,
		LearningRate: state.LearningRate,
		Cost:         cost,
		Dependent:    dependent,
		Independents: slices.Clone(independents),
		Counts:       maps.Clone(state.Counts),
		PublishedAt:  time.Now().UTC(),
		IsFitted:     state.Epoch > 0,
	}
}

// State rebuilds the snapshot the document was created from.
func (d *Document) State() ModelState {
	return ModelState{
		Epoch:        d.Epoch,
		Weight:       d.Weight,
		Bias:         d.Bias,
		LearningRate: d.LearningRate,
		Counts:       maps.Clone(d.Counts),
	}
}

// ToJSON serializes the document.
func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// FromJSON deserializes a document.
func (d *Document) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, d); err != nil {
		return errors.Wrap(err, "decode model document")
	}
	return nil
}

// Validate checks the document is usable.
func (d *Document) Validate() error {
	if d.ModelType != ModelType {
		return errors.NewValidationError("model_type", "unexpected model type", d.ModelType)
	}
	if d.Version == "" {
		return errors.NewValidationError("version", "version is required", d.Version)
	}
	if d.IsFitted && d.Epoch == 0 {
		return errors.NewValidationError("epoch", "fitted model must have completed an epoch", d.Epoch)
	}
	if math.IsNaN(d.Weight) || math.IsInf(d.Weight, 0) || math.IsNaN(d.Bias) || math.IsInf(d.Bias, 0) {
		return errors.NewNumericalInstabilityError("model.document", []float64{d.Weight, d.Bias}, d.Epoch)
	}
	return nil
}

// RequireFitted returns NotFittedError for untrained documents.
func (d *Document) RequireFitted(method string) error {
	if !d.IsFitted {
		return errors.NewNotFittedError(d.ModelType, method)
	}
	return nil
}

// Clone makes a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.Independents = slices.Clone(d.Independents)
	c.Counts = maps.Clone(d.Counts)
	return &c
}
