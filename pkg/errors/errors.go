// Package errors provides the error and warning types shared by every stage of
// the pipeline. Fatal conditions are returned as typed errors carrying a stack
// (cockroachdb/errors); recoverable conditions are reported through Warn and
// never abort the caller.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("seriesml-warning: %v\n", w)
	}
	// set by pkg/log; kept as a func to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the fallback handler used when no zerolog
// function has been registered.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // drop warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc registers the structured warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn reports a recoverable condition. The zerolog sink wins when set.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warnings
//
// ===========================================================================

// ConvergenceWarning is raised when training stops on the epoch limit alone
// while a target or steady cost rule was also configured.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d epochs: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d epochs. Consider raising the epoch limit or the learning rate.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// DataConversionWarning is raised when a raw field value could not be parsed
// and the kind default was substituted.
type DataConversionWarning struct {
	Field  string
	Raw    string
	ToType string
	Reason string
}

func (w *DataConversionWarning) Error() string {
	if w.Field != "" {
		return fmt.Sprintf("field %q: could not convert %q to %s, using default. Reason: %s", w.Field, w.Raw, w.ToType, w.Reason)
	}
	return fmt.Sprintf("could not convert %q to %s, using default. Reason: %s", w.Raw, w.ToType, w.Reason)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("field", w.Field).
		Str("raw", w.Raw).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning creates a DataConversionWarning.
func NewDataConversionWarning(field, raw, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{Field: field, Raw: raw, ToType: to, Reason: reason}
}

// UndefinedMetricWarning is raised when a diagnostic cannot be computed, for
// example R² over a validation set whose target has no variance.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// SkippedRecordWarning is raised when an example lacks a field a stage needs.
type SkippedRecordWarning struct {
	Stage  string
	Key    string
	Reason string
}

func (w *SkippedRecordWarning) Error() string {
	return fmt.Sprintf("%s: skipped record %q: %s", w.Stage, w.Key, w.Reason)
}

// NewSkippedRecordWarning creates a SkippedRecordWarning.
func NewSkippedRecordWarning(stage, key, reason string) *SkippedRecordWarning {
	return &SkippedRecordWarning{Stage: stage, Key: key, Reason: reason}
}

// ===========================================================================
//
//	Structured errors
//
// ===========================================================================

// TypeMismatchError is returned when arithmetic combines two values of
// different kinds. Silent coercion would corrupt running sums, so this is
// always fatal.
type TypeMismatchError struct {
	Op    string
	Left  string
	Right string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("seriesml: %s: type mismatch between %s and %s", e.Op, e.Left, e.Right)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *TypeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("left", e.Left).
		Str("right", e.Right).
		Str("type", "TypeMismatchError")
}

// NewTypeMismatchError creates a TypeMismatchError with a stack trace.
func NewTypeMismatchError(op, left, right string) error {
	return errors.WithStack(&TypeMismatchError{Op: op, Left: left, Right: right})
}

// ZeroDivisionError is returned when a count or divisor is zero.
type ZeroDivisionError struct {
	Op string
}

func (e *ZeroDivisionError) Error() string {
	return fmt.Sprintf("seriesml: %s: division by zero", e.Op)
}

// NewZeroDivisionError creates a ZeroDivisionError with a stack trace.
func NewZeroDivisionError(op string) error {
	return errors.WithStack(&ZeroDivisionError{Op: op})
}

// UnsupportedOperationError is returned when an operation is not defined for
// a value kind, e.g. adding two dates.
type UnsupportedOperationError struct {
	Op   string
	Kind string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("seriesml: %s: not supported for %s values", e.Op, e.Kind)
}

// NewUnsupportedOperationError creates an UnsupportedOperationError.
func NewUnsupportedOperationError(op, kind string) error {
	return errors.WithStack(&UnsupportedOperationError{Op: op, Kind: kind})
}

// MissingCoefficientError is returned when a precomputed per-field count or
// coefficient is absent at trainer start-up.
type MissingCoefficientError struct {
	Field  string
	Source string
}

func (e *MissingCoefficientError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("seriesml: missing precomputed count for field '%s' in %s", e.Field, e.Source)
	}
	return fmt.Sprintf("seriesml: missing precomputed count for field '%s'", e.Field)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *MissingCoefficientError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("field", e.Field).
		Str("source", e.Source).
		Str("type", "MissingCoefficientError")
}

// NewMissingCoefficientError creates a MissingCoefficientError.
func NewMissingCoefficientError(field, source string) error {
	return errors.WithStack(&MissingCoefficientError{Field: field, Source: source})
}

// MissingStatisticError is returned when a summary needs an aggregate key
// that is not present in the aggregator output.
type MissingStatisticError struct {
	Field string
	Key   string
}

func (e *MissingStatisticError) Error() string {
	return fmt.Sprintf("seriesml: statistics for '%s': aggregate '%s' not found", e.Field, e.Key)
}

// NewMissingStatisticError creates a MissingStatisticError.
func NewMissingStatisticError(field, key string) error {
	return errors.WithStack(&MissingStatisticError{Field: field, Key: key})
}

// KeyFormatError is returned when an encoded key cannot be split.
type KeyFormatError struct {
	Key    string
	Reason string
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("seriesml: malformed key %q: %s", e.Key, e.Reason)
}

// NewKeyFormatError creates a KeyFormatError.
func NewKeyFormatError(key, reason string) error {
	return errors.WithStack(&KeyFormatError{Key: key, Reason: reason})
}

// NotFittedError is returned when a model document that was never trained is
// handed to the validator.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("seriesml: %s: this model is not trained yet. Run training before %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// ValidationError is returned when configuration or an input parameter fails
// validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("seriesml: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError is returned when an argument has an inappropriate value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("seriesml: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError wraps a failure inside a training or validation run.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("seriesml: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("seriesml: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError is returned when a fold produces NaN or Inf.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("seriesml: numerical instability detected in %s at epoch %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Sentinels
//
// ===========================================================================

var (
	// ErrEmptyData is returned when a stage receives no records.
	ErrEmptyData = New("empty data")

	// ErrNotFound is returned by model stores when nothing was published yet.
	ErrNotFound = New("not found")
)
