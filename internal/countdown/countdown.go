// Package countdown implements the one-shot cancellable timer that drives a session.
package countdown

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultPollInterval keeps cancellation latency low without busy-spinning.
const DefaultPollInterval = 25 * time.Millisecond

// ErrNoOutcome is returned when the outcome channel closed without a value.
var ErrNoOutcome = errors.New("countdown produced no outcome")

// ProgressFunc is called at most once per elapsed second while the countdown runs.
type ProgressFunc func(elapsed, target time.Duration)

// Outcome is the single result of a countdown.
type Outcome struct {
	Cancelled bool
	Elapsed   time.Duration
}

// Countdown races a wall-clock timer against context cancellation.
type Countdown struct {
	Target       time.Duration
	PollInterval time.Duration
	Progress     ProgressFunc

	// now is swapped in tests.
	now func() time.Time
}

// New returns a countdown for target with the default poll interval.
func New(target time.Duration, progress ProgressFunc) *Countdown {
	return &Countdown{Target: target, PollInterval: DefaultPollInterval, Progress: progress}
}

// Start launches the timer and the cancel watcher. The returned channel yields
// exactly one Outcome and is then closed. Whichever side finishes first wins;
// the other side's result is dropped.
func (c *Countdown) Start(ctx context.Context) <-chan Outcome {
	poll := c.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	now := c.now
	if now == nil {
		now = time.Now
	}

	out := make(chan Outcome, 1)
	stop := make(chan struct{})
	var once sync.Once
	begin := now()
	deliver := func(o Outcome) {
		once.Do(func() {
			out <- o
			close(out)
			close(stop)
		})
	}

	go func() {
		t := time.NewTicker(poll)
		defer t.Stop()
		lastReport := time.Duration(-1)
		for {
			elapsed := now().Sub(begin)
			if elapsed >= c.Target {
				deliver(Outcome{Elapsed: elapsed})
				return
			}
			if c.Progress != nil && !stopped(stop) {
				if sec := elapsed.Truncate(time.Second); sec != lastReport {
					lastReport = sec
					c.Progress(sec, c.Target)
				}
			}
			select {
			case <-stop:
				return
			case <-t.C:
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			deliver(Outcome{Cancelled: true, Elapsed: now().Sub(begin)})
		case <-stop:
		}
	}()

	return out
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// Wait runs the countdown to completion.
func (c *Countdown) Wait(ctx context.Context) (Outcome, error) {
	return Receive(c.Start(ctx))
}

// Receive reads the single outcome from ch.
func Receive(ch <-chan Outcome) (Outcome, error) {
	o, ok := <-ch
	if !ok {
		return Outcome{}, ErrNoOutcome
	}
	return o, nil
}
