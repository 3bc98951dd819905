package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		items int
		parts int
		want  []Range
	}{
		{"empty", 0, 4, nil},
		{"even", 8, 4, []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"uneven", 7, 3, []Range{{0, 3}, {3, 6}, {6, 7}}},
		{"more parts than items", 2, 8, []Range{{0, 1}, {1, 2}}},
		{"single", 5, 1, []Range{{0, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.items, tt.parts))
		})
	}
}

func TestSplitCoversEveryItemOnce(t *testing.T) {
	for items := 1; items < 50; items++ {
		seen := make([]int, items)
		for _, r := range Split(items, 0) {
			for i := r.Start; i < r.End; i++ {
				seen[i]++
			}
		}
		for i, n := range seen {
			require.Equal(t, 1, n, "items=%d index=%d", items, i)
		}
	}
}

func TestForEachPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Int32
	err := ForEach(context.Background(), Split(100, 10), 1, func(ctx context.Context, task int, r Range) error {
		ran.Add(1)
		if task == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, ran.Load(), int32(10))
}
