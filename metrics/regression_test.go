package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			yPred: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			want:  0,
		},
		{
			name:  "simple case",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:  0.25,
		},
		{
			name:  "larger errors",
			yTrue: mat.NewVecDense(3, []float64{10, 20, 30}),
			yPred: mat.NewVecDense(3, []float64{12, 18, 33}),
			want:  17.0 / 3.0,
		},
		{
			name:    "length mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred:   mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{10, 20, 30})
	yPred := mat.NewVecDense(3, []float64{12, 18, 33})

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(17.0/3.0), rmse, 1e-10)

	mae, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, mae, 1e-10)

	_, err = MAE(yTrue, mat.NewVecDense(1, []float64{1}))
	assert.Error(t, err)
}

func TestSums(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	yPred := mat.NewVecDense(4, []float64{1.5, 2, 3, 3.5})

	s, err := Sums(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 4, s.N)
	// mean 2.5
	assert.InDelta(t, 2.5, s.SSR, 1e-12)
	assert.InDelta(t, 0.5, s.SSE, 1e-12)
	assert.InDelta(t, 5.0, s.SST, 1e-12)
	assert.InDelta(t, s.SSR/s.SST, s.R2(), 1e-12)
}

func TestPerfectFit(t *testing.T) {
	y := mat.NewVecDense(4, []float64{2, 4, 6, 8})
	s, err := Sums(y, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.R2(), 1e-12)
	assert.InDelta(t, 1.0, AdjustedR2(s.R2(), s.N, 1), 1e-12)
	assert.InDelta(t, 0.0, StandardError(s.SSE, s.N, 1), 1e-12)
}

func TestUndefinedDiagnostics(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	constant := mat.NewVecDense(3, []float64{5, 5, 5})
	s, err := Sums(constant, constant)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(s.R2()))

	assert.True(t, math.IsNaN(AdjustedR2(0.5, 2, 1)))
	assert.True(t, math.IsNaN(StandardError(1, 2, 1)))
	require.Len(t, warnings, 3)

	var umw *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &umw))
}

func TestAdjustedR2(t *testing.T) {
	// n=11, k=1: 1 - (10/9)(1-0.91) = 0.9
	assert.InDelta(t, 0.9, AdjustedR2(0.91, 11, 1), 1e-12)
	assert.InDelta(t, math.Sqrt(18.0/9.0), StandardError(18, 11, 1), 1e-12)
}
