package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestNextRunSameDay(t *testing.T) {
	s := NewSweeper(2, 0, nil, quietLogger())
	from := time.Date(2026, 8, 31, 1, 30, 0, 0, time.UTC)

	next := s.nextRun(from)
	want := time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextRunRollsToTomorrow(t *testing.T) {
	s := NewSweeper(2, 0, nil, quietLogger())

	from := time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC)
	next := s.nextRun(from)
	want := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("exact slot time should schedule tomorrow: next = %v, want %v", next, want)
	}

	from = time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	next = s.nextRun(from)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextRunNormalizesToUTC(t *testing.T) {
	s := NewSweeper(2, 30, nil, quietLogger())
	loc := time.FixedZone("UTC+5", 5*3600)
	from := time.Date(2026, 8, 31, 6, 0, 0, 0, loc) // 01:00 UTC

	next := s.nextRun(from)
	want := time.Date(2026, 8, 31, 2, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestRunOnceAbsorbsErrors(t *testing.T) {
	s := NewSweeper(2, 0, func(ctx context.Context) (int, int, error) {
		return 0, 0, context.DeadlineExceeded
	}, quietLogger())

	// Must not panic or propagate; the sweeper waits for the next slot.
	s.runOnce(context.Background())
}
