package scheduler

import (
	"log/slog"
	"time"

	"github.com/loykin/gomato/internal/countdown"
	"github.com/loykin/gomato/internal/history"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUnit sets the length of one duration unit. Sessions are measured in
// minutes; tests shrink the unit.
func WithUnit(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.unit = d
		}
	}
}

// WithSink exports lifecycle events. Send failures are logged and ignored.
func WithSink(sink history.Sink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProgress is called while the countdown runs.
func WithProgress(fn countdown.ProgressFunc) Option {
	return func(s *Scheduler) { s.progress = fn }
}

// WithPollInterval overrides the countdown's cancellation poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.poll = d }
}

// WithOwnerStartedAt records the owner's process start time on every session
// so a later liveness check can spot a reused pid.
func WithOwnerStartedAt(unix int64) Option {
	return func(s *Scheduler) { s.ownerStartedAt = unix }
}
