package utils

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// IndexedWorkFunc runs for a single work item identified by its index.
type IndexedWorkFunc func(ctx context.Context, index int) error

// RunParallel calls work for every index in [0, total) using at most workers goroutines. A
// non-positive workers count uses ParallelFactor. The first error (or recovered panic) cancels the
// remaining work and is returned. Work items must not share mutable state.
func RunParallel(ctx context.Context, total, workers int, work IndexedWorkFunc) error {
	if workers <= 0 {
		workers = ParallelFactor
	}
	if workers == 1 || total <= 1 {
		for i := 0; i < total; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := work(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := 0; i < total; i++ {
		index := i
		group.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = fmt.Errorf("got panic running work item %d in parallel: %v", index, thePanic)
				}
			}()
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return work(groupCtx, index)
		})
	}
	return group.Wait()
}
