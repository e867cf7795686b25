package services

import (
	"fmt"
	"sync"

	"picstore_backend/internal/logger"
)

// TaskRunner executes fire-and-forget work (counter bumps, storage
// cleanup, notification hooks) on detached goroutines. Callers never
// await results; failures land on an error channel that is drained into
// the log and can never fail the triggering operation.
type TaskRunner struct {
	errs chan taskError
	wg   sync.WaitGroup
	done chan struct{}
}

type taskError struct {
	name string
	err  error
}

func NewTaskRunner() *TaskRunner {
	r := &TaskRunner{
		errs: make(chan taskError, 64),
		done: make(chan struct{}),
	}
	go r.drain()
	return r
}

// Go dispatches fn on its own goroutine. Panics are recovered and
// reported as errors.
func (r *TaskRunner) Go(name string, fn func() error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.report(name, fmt.Errorf("panic: %v", rec))
			}
		}()

		if err := fn(); err != nil {
			r.report(name, err)
		}
	}()
}

func (r *TaskRunner) report(name string, err error) {
	select {
	case r.errs <- taskError{name: name, err: err}:
	default:
		// Channel backed up; log inline rather than block the task.
		logger.Error("detached task failed", "task", name, "error", err)
	}
}

func (r *TaskRunner) drain() {
	for {
		select {
		case te := <-r.errs:
			logger.Error("detached task failed", "task", te.name, "error", te.err)
		case <-r.done:
			// Flush whatever is still queued.
			for {
				select {
				case te := <-r.errs:
					logger.Error("detached task failed", "task", te.name, "error", te.err)
				default:
					return
				}
			}
		}
	}
}

// Close waits for in-flight tasks and stops the drain loop.
func (r *TaskRunner) Close() {
	r.wg.Wait()
	close(r.done)
}
