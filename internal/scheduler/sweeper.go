package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SweepFunc runs one deletion sweep and reports how many records were
// finalized and how many failed.
type SweepFunc func(ctx context.Context) (deleted, failed int, err error)

// Sweeper runs the deletion sweep once a day at a fixed UTC time. A
// failing run is logged and the sweeper waits for the next slot; the
// sweep itself isolates per-record failures, so an error here means the
// batch could not even be listed.
type Sweeper struct {
	Hour   int
	Minute int
	Run    SweepFunc
	Logger *logrus.Logger

	// now is overridable for tests.
	now func() time.Time
}

func NewSweeper(hour, minute int, run SweepFunc, logger *logrus.Logger) *Sweeper {
	return &Sweeper{Hour: hour, Minute: minute, Run: run, Logger: logger, now: time.Now}
}

// nextRun returns the next occurrence of the configured time of day in
// UTC, strictly after from.
func (s *Sweeper) nextRun(from time.Time) time.Time {
	from = from.UTC()
	next := time.Date(from.Year(), from.Month(), from.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start blocks until ctx is cancelled, running the sweep at each slot.
// Meant to run in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.Logger.WithFields(logrus.Fields{"hour": s.Hour, "minute": s.Minute}).Info("deletion sweeper started")
	for {
		next := s.nextRun(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.Logger.Info("deletion sweeper stopped")
			return
		case <-timer.C:
		}
		s.runOnce(ctx)
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	start := s.now()
	deleted, failed, err := s.Run(ctx)
	if err != nil {
		s.Logger.WithError(err).Error("deletion sweep aborted")
		return
	}
	s.Logger.WithFields(logrus.Fields{
		"deleted":  deleted,
		"failed":   failed,
		"duration": s.now().Sub(start).String(),
	}).Info("deletion sweep finished")
}
