// Package scheduler implements the scheduler (component I): it drives
// sync.Pipeline.SyncOnce on a fixed interval, using a robfig/cron
// scheduler with a fixed-delay schedule instead of a bare time.Ticker to
// match the pack's idiom for periodic jobs, and its SkipIfStillRunning
// chain for the non-overlapping guarantee in §4.9.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SyncFunc runs one sync_once() invocation.
type SyncFunc func(ctx context.Context)

// Scheduler drives SyncFunc on a fixed interval, non-overlapping, surviving
// panics from the job.
type Scheduler struct {
	enabled  bool
	interval time.Duration
	syncOnce SyncFunc
	cron     *cron.Cron
}

// New builds a Scheduler. enabled corresponds to sync.enabled (§4.10); when
// false, Start is a no-op, matching "a feature flag disables the scheduler
// entirely for tests and one-shot runs."
func New(enabled bool, interval time.Duration, syncOnce SyncFunc) *Scheduler {
	return &Scheduler{
		enabled:  enabled,
		interval: interval,
		syncOnce: syncOnce,
	}
}

// Start begins the periodic driver. It returns immediately; the cron
// scheduler runs its own goroutine until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.enabled {
		slog.Info("[Scheduler] sync disabled, not starting")
		return
	}

	logger := cron.PrintfLogger(slogWriter{})
	s.cron = cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	s.cron.Schedule(everySchedule(s.interval), cron.FuncJob(func() { s.syncOnce(ctx) }))

	slog.Info("[Scheduler] starting sync scheduler", "interval", s.interval)
	s.cron.Start()
}

// everySchedule fires a fixed delay after each activation. Unlike cron's
// "@every" spec, which rounds delays to whole seconds, it keeps the
// configured interval exactly, including sub-second intervals.
type everySchedule time.Duration

func (d everySchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

// Stop halts the scheduler, waiting for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	slog.Info("[Scheduler] stopped")
}

// slogWriter adapts cron's *log.Logger-shaped Printf logger onto slog so
// the scheduler's recover/skip messages carry the same "[Scheduler] ..."
// bracketed-tag convention as the rest of the module.
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...interface{}) {
	slog.Info(fmt.Sprintf("[Scheduler] "+format, args...))
}
