// Package parallel runs index ranges on a bounded set of goroutines.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Workers resolves a requested worker count: values <= 0 mean one worker
// per CPU. The result never exceeds items.
func Workers(requested, items int) int {
	n := requested
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Parallelize splits [0, items) into contiguous chunks, one per worker, and
// calls fn(start, end) for each chunk concurrently. It returns when every
// chunk is done.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	workers = Workers(workers, items)
	if workers == 1 {
		fn(0, items)
		return
	}

	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForEach calls fn(i) for every i in [0, items) using at most workers
// goroutines. The first non-nil error is returned after all calls finish.
// A panic in fn is returned as an *errors.PanicError instead of crashing the
// worker goroutine.
func ForEach(items, workers int, fn func(i int) error) error {
	var (
		mu       sync.Mutex
		firstErr error
	)
	Parallelize(items, workers, func(start, end int) {
		for i := start; i < end; i++ {
			if err := call(fn, i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
		}
	})
	return firstErr
}

func call(fn func(i int) error, i int) (err error) {
	defer errors.Recover(&err, fmt.Sprintf("parallel.ForEach item %d", i))
	return fn(i)
}
