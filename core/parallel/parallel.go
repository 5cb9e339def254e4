// Package parallel provides the fork-join primitives used by the histogram
// engine and dataset maintenance operations. Tasks own disjoint memory
// regions; the only synchronization is the join, after which the first task
// error (including recovered panics) is returned.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/gbdata/pkg/errors"
)

// NumWorkers returns the worker count read from the ambient runtime at the
// start of a parallel region.
func NumWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// Parallelize splits [0, items) into contiguous chunks, one per worker, and
// runs fn(start, end) for each chunk concurrently. A panic inside a chunk is
// captured and the first one re-raised in the caller after the join, so a
// faulting task cannot kill the process from a worker goroutine.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	numWorkers := NumWorkers()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fault *errors.PanicError
	)
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if fault == nil {
						fault = errors.NewPanicError("parallel.Parallelize", r)
					}
					mu.Unlock()
				}
			}()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
	if fault != nil {
		panic(fault)
	}
}

// ParallelizeWithThreshold runs fn sequentially when items is at or below
// threshold and in parallel otherwise.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach runs fn(i) for every i in [0, items), one task per index, and
// returns the first error after all tasks have finished. A panic inside a
// task is captured as a PanicError rather than crashing sibling tasks.
func ForEach(items int, fn func(i int) error) error {
	if items <= 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(NumWorkers())
	for i := 0; i < items; i++ {
		i := i
		g.Go(func() (err error) {
			defer errors.Recover(&err, "parallel.ForEach")
			return fn(i)
		})
	}
	return g.Wait()
}

// ForEachChunk splits [0, items) into chunks of at least minChunk and at most
// one chunk per worker, runs fn(chunk, start, end) concurrently, and returns
// the first error after the join. The chunk index is stable so tasks can own
// per-chunk scratch regions.
func ForEachChunk(items, minChunk int, fn func(chunk, start, end int) error) error {
	n := Chunks(items, minChunk)
	if n == 0 {
		return nil
	}
	step := (items + n - 1) / n
	var g errgroup.Group
	for c := 0; c < n; c++ {
		start := c * step
		end := start + step
		if end > items {
			end = items
		}
		c := c
		g.Go(func() (err error) {
			defer errors.Recover(&err, "parallel.ForEachChunk")
			return fn(c, start, end)
		})
	}
	return g.Wait()
}

// Chunks returns the number of chunks ForEachChunk will use for items with
// the given minimum chunk size.
func Chunks(items, minChunk int) int {
	if items <= 0 {
		return 0
	}
	if minChunk < 1 {
		minChunk = 1
	}
	n := (items + minChunk - 1) / minChunk
	if w := NumWorkers(); n > w {
		n = w
	}
	return n
}
