// Package tasks runs fire-and-forget side effects. A task's outcome is only ever logged;
// callers cannot await or cancel an individual task.
package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
)

// Runner spawns background tasks detached from the caller's cancellation.
type Runner struct {
	wg      sync.WaitGroup
	mu      sync.Mutex
	started int
	failed  int
}

// NewRunner returns a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Go starts fn in its own goroutine. ctx values (trace spans, request ids) are kept but its
// cancellation is not, so a finished request does not abort its follow-up work.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)

	r.mu.Lock()
	r.started++
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()

		err := run(detached, fn)
		if err != nil {
			r.mu.Lock()
			r.failed++
			r.mu.Unlock()
			logging.Get(logging.CategoryTasks).Error("Task %s failed after %v: %v", name, time.Since(start), err)
			return
		}
		logging.Get(logging.CategoryTasks).Debug("Task %s completed in %v", name, time.Since(start))
	}()
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Wait blocks until every started task has finished. Used at shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Stats returns how many tasks were started and how many failed.
func (r *Runner) Stats() (started, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, r.failed
}
