// Package threadpool models the "thread-pool as collaborator" of spec.md
// §9: a fixed-size pool of goroutines exposing spawn/wait_all, learned
// from the worker-pool shape of _examples/gogpu-gg's internal/parallel
// package (the teacher, qri-io/zarr-go, does no concurrent scheduling of
// its own). Unlike that pool this one has no work-stealing: chunk-assembly
// tasks are already individually sized, so a bounded semaphore plus one
// barrier per batch is enough, which is what the C++ original's
// BS::thread_pool detach_task/wait() usage amounts to.
package threadpool

import (
	"runtime"
	"sync"
)

// Pool runs each submitted task on its own goroutine, with at most size
// tasks running at once. The zero value is not usable; construct with New.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// New creates a pool with size workers. If size is 0 or negative,
// runtime.GOMAXPROCS(0) is used, matching the host-selects-by-default
// policy of spec.md §5.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Spawn runs fn on a new goroutine. If size tasks are already running it
// blocks until one of them finishes; fn never runs on the caller's own
// goroutine.
func (p *Pool) Spawn(fn func() error) {
	p.wg.Add(1)
	p.sem <- struct{}{}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()

		if err := fn(); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
	}()
}

// Wait blocks until every task spawned since the last Wait has completed,
// and returns the first error (if any) among them. This is the barrier of
// spec.md §5: "a barrier at the end of set_composition... and at the end
// of each materialize request."
func (p *Pool) Wait() error {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if len(p.errs) > 0 {
		err = p.errs[0]
	}
	p.errs = nil
	return err
}
