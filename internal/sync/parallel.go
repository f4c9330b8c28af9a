package sync

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ParallelResult holds the result of one item of a parallel operation.
type ParallelResult[R any] struct {
	Value R
	Err   error
}

// ParallelCollect processes items with at most workers goroutines and returns
// one result per item, in input order. A failing item never cancels the
// others; callers inspect each result's Err.
//
// The onProgress callback is called after each item is processed.
func ParallelCollect[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	process func(ctx context.Context, item T) (R, error),
	onProgress func(done int64, total int64),
) []ParallelResult[R] {
	if len(items) == 0 {
		return nil
	}

	total := int64(len(items))
	out := make([]ParallelResult[R], len(items))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(normalizeWorkers(workers, len(items)))
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = ParallelResult[R]{Err: err}
			} else {
				value, err := process(ctx, item)
				out[i] = ParallelResult[R]{Value: value, Err: err}
			}
			n := done.Add(1)
			if onProgress != nil {
				onProgress(n, total)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// normalizeWorkers ensures worker count is between 1 and item count.
func normalizeWorkers(workers, itemCount int) int {
	if workers < 1 {
		workers = 1
	}
	if workers > itemCount {
		workers = itemCount
	}
	return workers
}
