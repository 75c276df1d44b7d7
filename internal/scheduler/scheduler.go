// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single run of a job.
const DefaultJobTimeout = 30 * time.Second

// Scheduler wraps cron-based jobs.
type Scheduler struct {
	cron *cron.Cron
}

// New returns a scheduler evaluating schedules in loc. Overlapping runs of
// the same job are skipped.
func New(loc *time.Location) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Schedule registers job under name on a standard cron spec or descriptor
// such as "@hourly". Failures are logged.
func (s *Scheduler) Schedule(spec, name string, job Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() { run(name, job) })
	if err != nil {
		return 0, fmt.Errorf("schedule %s on %q: %w", name, spec, err)
	}
	return id, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Entries returns the registered jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultJobTimeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled job failed", "job", name, "error", err)
		return
	}
	slog.DebugContext(ctx, "Scheduled job finished", "job", name, "duration_ms", time.Since(start).Milliseconds())
}

// SessionStore removes expired sessions.
type SessionStore interface {
	CleanExpiredSessions(ctx context.Context) (int64, error)
}

// SessionCleanup returns a job deleting expired sessions from store.
func SessionCleanup(store SessionStore) Job {
	return func(ctx context.Context) error {
		n, err := store.CleanExpiredSessions(ctx)
		if err != nil {
			return fmt.Errorf("clean expired sessions: %w", err)
		}
		if n > 0 {
			slog.InfoContext(ctx, "Removed expired sessions", "count", n)
		}
		return nil
	}
}
