// Package parallel splits index ranges across workers and runs them with
// error propagation: the first failing worker cancels the rest.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Range is the half-open index interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of items in the range.
func (r Range) Len() int { return r.End - r.Start }

// Split divides items into at most parts contiguous ranges of near-equal
// size. parts <= 0 means one range per CPU core.
func Split(items, parts int) []Range {
	if items <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = runtime.NumCPU()
	}
	if parts > items {
		parts = items // no need for more ranges than items
	}

	// ceiling division
	chunkSize := (items + parts - 1) / parts

	ranges := make([]Range, 0, parts)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// ForEach runs fn once per range with at most limit concurrent workers
// (limit <= 0 means unbounded). It returns the first error; the context passed
// to the remaining workers is cancelled at that point.
func ForEach(ctx context.Context, ranges []Range, limit int, fn func(ctx context.Context, task int, r Range) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, r := range ranges {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i, r)
		})
	}
	return g.Wait()
}
