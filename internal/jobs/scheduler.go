package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"picstore_backend/internal/logger"
)

// Job is a unit of scheduled background work. Run processes its batch to
// completion; per-item failures are the job's own business and must not
// be fatal.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job      Job
	interval time.Duration
	running  atomic.Bool
}

// Scheduler drives registered jobs on fixed intervals, one goroutine per
// job. A job never overlaps with a second instance of itself: a tick that
// arrives while the previous run is still going is skipped.
type Scheduler struct {
	entries []*entry
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Register(interval time.Duration, job Job) {
	s.entries = append(s.entries, &entry{job: job, interval: interval})
}

// Start launches all job loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

// Wait blocks until all job loops have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	logger.Info("job scheduled", "job", e.job.Name(), "interval", e.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("job loop stopped", "job", e.job.Name())
			return
		case <-ticker.C:
			s.runOnce(ctx, e)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, e *entry) {
	if !e.running.CompareAndSwap(false, true) {
		logger.Warn("previous run still in progress, skipping tick", "job", e.job.Name())
		return
	}
	defer e.running.Store(false)

	err := e.job.Run(ctx)
	logger.WorkerLog(e.job.Name(), "run", err)
}
