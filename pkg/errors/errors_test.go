package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewTypeMismatchError(t *testing.T) {
	err := NewTypeMismatchError("Value.Add", "float64", "bigdecimal")

	want := "seriesml: Value.Add: type mismatch between float64 and bigdecimal"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var tmErr *TypeMismatchError
	if !As(err, &tmErr) {
		t.Fatal("Error should be castable to *TypeMismatchError")
	}
	if tmErr.Left != "float64" || tmErr.Right != "bigdecimal" {
		t.Errorf("unexpected fields: %+v", tmErr)
	}

	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}
}

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Trainer.RunEpoch",
			kind:    "reduce failed",
			err:     fmt.Errorf("test error"),
			wantMsg: "seriesml: Trainer.RunEpoch: reduce failed: test error",
		},
		{
			name:    "without original error",
			op:      "Validator.Run",
			kind:    "no examples in range",
			err:     nil,
			wantMsg: "seriesml: Validator.Run: no examples in range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestMissingCoefficientError(t *testing.T) {
	err := NewMissingCoefficientError("temp_max", "counts.txt")

	want := "seriesml: missing precomputed count for field 'temp_max' in counts.txt"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var mcErr *MissingCoefficientError
	if !As(err, &mcErr) {
		t.Error("Error should be castable to *MissingCoefficientError")
	}
}

func TestZeroDivisionAndKeyFormat(t *testing.T) {
	zd := NewZeroDivisionError("Summary.Mean")
	var zdErr *ZeroDivisionError
	if !As(zd, &zdErr) || zdErr.Op != "Summary.Mean" {
		t.Errorf("unexpected zero division error: %v", zd)
	}

	kf := NewKeyFormatError(`a\`, "dangling escape")
	if !strings.Contains(kf.Error(), "dangling escape") {
		t.Errorf("unexpected key format message: %v", kf)
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("GradientDescent", 1000, "cost did not reach target")

	want := "GradientDescent failed to converge after 1000 epochs: cost did not reach target"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarnRoutesToHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewDataConversionWarning("crimes", "abc", "int64", "invalid syntax"))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), `field "crimes"`) {
		t.Errorf("unexpected warning text: %v", got[0])
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in StatsAggregator")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in StatsAggregator") {
		t.Error("Expected wrapped error to contain wrapping message")
	}

	wrappedf := Wrapf(ErrNotFound, "run %s epoch %d", "r1", 3)
	if !Is(wrappedf, ErrNotFound) {
		t.Error("Expected Is(wrappedf, ErrNotFound) to be true")
	}
}

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("cost", 1.5, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	nan := 0.0
	nan = nan / nan
	err := CheckScalar("cost", nan, 4)
	var niErr *NumericalInstabilityError
	if !As(err, &niErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if niErr.Iteration != 4 {
		t.Errorf("Iteration = %d, want 4", niErr.Iteration)
	}
}
