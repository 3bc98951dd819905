package model

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

func TestModelStateNextKeepsCounts(t *testing.T) {
	counts := map[string]int64{"x": 3}
	s := NewModelState(0, 0, 0.01, counts)
	counts["x"] = 99 // caller mutation must not leak in

	n, ok := s.Count("x")
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	next := s.Next(0.16, 0.08)
	assert.Equal(t, 1, next.Epoch)
	assert.Equal(t, 0.01, next.LearningRate)
	assert.Equal(t, 0.16*2+0.08, next.Predict(2))
	assert.Equal(t, 0, s.Epoch)
}

func TestRequireCounts(t *testing.T) {
	s := NewModelState(0, 0, 0.01, map[string]int64{"x": 3})
	require.NoError(t, s.RequireCounts("counts.txt", "x"))

	err := s.RequireCounts("counts.txt", "x", "z")
	var mc *errors.MissingCoefficientError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "z", mc.Field)
	assert.Equal(t, "counts.txt", mc.Source)
}

func TestModelStateValidate(t *testing.T) {
	assert.NoError(t, NewModelState(0, 0, 0.1, nil).Validate())
	assert.Error(t, NewModelState(0, 0, 0, nil).Validate())
	assert.Error(t, NewModelState(math.NaN(), 0, 0.1, nil).Validate())
}

func TestPhaseTrackerTransitions(t *testing.T) {
	pt := NewPhaseTracker()
	assert.Equal(t, PhaseInit, pt.Phase())
	assert.Error(t, pt.RequireFitted("Validate"))

	require.Error(t, pt.BeginEpoch(2))
	require.NoError(t, pt.BeginEpoch(1))
	require.NoError(t, pt.BeginEpoch(2))
	assert.Equal(t, PhaseRunning, pt.Phase())
	assert.Equal(t, 2, pt.Epoch())

	require.NoError(t, pt.Converge("epoch_limit"))
	assert.True(t, pt.IsFitted())
	assert.NoError(t, pt.RequireFitted("Validate"))
	assert.Error(t, pt.BeginEpoch(3))

	st := pt.GetState()
	assert.Equal(t, "converged", st.Phase)
	assert.Equal(t, "epoch_limit", st.Reason)
}

func TestPhaseTrackerFailKeepsFirstError(t *testing.T) {
	pt := NewPhaseTracker()
	assert.Error(t, pt.Converge("early"))

	first := errors.New("first")
	pt.Fail(first)
	pt.Fail(errors.New("second"))
	assert.Equal(t, PhaseFailed, pt.Phase())
	assert.Equal(t, first, pt.Err())
	assert.Equal(t, "first", pt.GetState().Error)
}

func TestPhaseTrackerConcurrentReads(t *testing.T) {
	pt := NewPhaseTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = pt.GetState()
			}
		}()
	}
	for e := 1; e <= 50; e++ {
		require.NoError(t, pt.BeginEpoch(e))
	}
	wg.Wait()
}

func testDocument(runID string, epoch int) *Document {
	s := NewModelState(0, 0, 0.01, map[string]int64{"x": 3})
	for i := 0; i < epoch; i++ {
		s = s.Next(float64(i+1)*0.1, float64(i+1)*0.01)
	}
	return NewDocument(runID, s, 1.5/float64(epoch+1), "y", []string{"x"})
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := testDocument("run-1", 3)
	data, err := doc.ToJSON()
	require.NoError(t, err)

	var back Document
	require.NoError(t, back.FromJSON(data))
	require.NoError(t, back.Validate())
	assert.Equal(t, doc.Weight, back.Weight)
	assert.Equal(t, doc.Counts, back.Counts)
	assert.True(t, back.IsFitted)
	assert.Equal(t, doc.State().Weight, back.State().Weight)
}

func TestDocumentValidate(t *testing.T) {
	doc := testDocument("run-1", 1)
	doc.ModelType = "Other"
	assert.Error(t, doc.Validate())

	doc = testDocument("run-1", 0)
	assert.False(t, doc.IsFitted)
	assert.Error(t, doc.RequireFitted("Validate"))

	doc = testDocument("run-1", 1)
	doc.Weight = math.Inf(1)
	assert.Error(t, doc.Validate())
}

func TestDocumentClone(t *testing.T) {
	doc := testDocument("run-1", 1)
	c := doc.Clone()
	c.Counts["x"] = 42
	c.Independents[0] = "z"
	assert.Equal(t, int64(3), doc.Counts["x"])
	assert.Equal(t, "x", doc.Independents[0])
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Latest(ctx, "run-1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	for epoch := 1; epoch <= 12; epoch++ {
		require.NoError(t, store.Publish(ctx, testDocument("run-1", epoch)))
	}
	require.NoError(t, store.Publish(ctx, testDocument("run-2", 1)))

	latest, err := store.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 12, latest.Epoch)
	assert.InDelta(t, 1.2, latest.Weight, 1e-12)

	history, err := store.History(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, history, 12)
	for i, d := range history {
		assert.Equal(t, i+1, d.Epoch)
	}

	err = store.Publish(ctx, &Document{ModelType: ModelType, Version: DocumentVersion})
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	doc, err := ReadJSON(filepath.Join(store.RunDir("run-1"), LatestJSON))
	require.NoError(t, err)
	assert.Equal(t, 12, doc.Epoch)
}

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadgerStore(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestBadgerStoreRequiresPath(t *testing.T) {
	_, err := OpenBadgerStore(BadgerOptions{})
	assert.Error(t, err)
}

func TestSaveAndLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.gob")
	doc := testDocument("run-1", 2)
	require.NoError(t, SaveDocument(doc, path))

	back, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Bias, back.Bias)
	assert.Equal(t, doc.Independents, back.Independents)
}
