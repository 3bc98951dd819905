// Package metrics holds goodness-of-fit diagnostics for fitted regression
// lines.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// SumsOfSquares are the three sums a validation pass accumulates.
type SumsOfSquares struct {
	// SSR is Σ(ŷ−ȳ)².
	SSR float64
	// SSE is Σ(y−ŷ)².
	SSE float64
	// SST is Σ(y−ȳ)².
	SST float64
	// N is the number of observations.
	N int
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		return 0, errors.NewValueError(op, fmt.Sprintf("length mismatch: %d observed, %d predicted", n, yPred.Len()))
	}
	return n, nil
}

func residuals(yTrue, yPred *mat.VecDense) []float64 {
	r := make([]float64, yTrue.Len())
	floats.SubTo(r, yTrue.RawVector().Data, yPred.RawVector().Data)
	return r
}

// MSE is the mean squared error.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	r := residuals(yTrue, yPred)
	return floats.Dot(r, r) / float64(n), nil
}

// RMSE is the square root of MSE.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Norm(residuals(yTrue, yPred), 1) / float64(n), nil
}

// Sums computes SSR, SSE and SST around the mean of yTrue.
func Sums(yTrue, yPred *mat.VecDense) (SumsOfSquares, error) {
	n, err := checkPair("Sums", yTrue, yPred)
	if err != nil {
		return SumsOfSquares{}, err
	}
	y := yTrue.RawVector().Data
	yHat := yPred.RawVector().Data
	mean := stat.Mean(y, nil)

	s := SumsOfSquares{N: n}
	for i := range y {
		dr := yHat[i] - mean
		de := y[i] - yHat[i]
		dt := y[i] - mean
		s.SSR += dr * dr
		s.SSE += de * de
		s.SST += dt * dt
	}
	return s, nil
}

// R2 is the explained share SSR/SST. It is NaN when SST is zero.
func (s SumsOfSquares) R2() float64 {
	if s.SST == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "total sum of squares is zero", math.NaN()))
		return math.NaN()
	}
	return s.SSR / s.SST
}

// AdjustedR2 corrects r2 for k regressors over n observations:
// 1 − ((n−1)/(n−k−1))·(1−r2). It is NaN when n−k−1 ≤ 0.
func AdjustedR2(r2 float64, n, k int) float64 {
	dof := n - k - 1
	if dof <= 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("adjusted_r2",
			fmt.Sprintf("n-k-1 = %d", dof), math.NaN()))
		return math.NaN()
	}
	return 1 - (float64(n-1)/float64(dof))*(1-r2)
}

// StandardError is sqrt(SSE/(n−k−1)). It is NaN when n−k−1 ≤ 0.
func StandardError(sse float64, n, k int) float64 {
	dof := n - k - 1
	if dof <= 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("std_error",
			fmt.Sprintf("n-k-1 = %d", dof), math.NaN()))
		return math.NaN()
	}
	return math.Sqrt(sse / float64(dof))
}
