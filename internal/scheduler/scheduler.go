// Package scheduler runs one session end to end: activation, countdown and
// terminal update.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/gomato/internal/countdown"
	"github.com/loykin/gomato/internal/history"
	"github.com/loykin/gomato/internal/metrics"
	"github.com/loykin/gomato/internal/session"
	"github.com/loykin/gomato/internal/store"
)

// Scheduler drives sessions on behalf of a single owner process.
type Scheduler struct {
	st             store.Store
	owner          int
	ownerStartedAt int64

	now      func() time.Time
	unit     time.Duration
	poll     time.Duration
	sink     history.Sink
	log      *slog.Logger
	progress countdown.ProgressFunc
}

// New returns a scheduler whose sessions are owned by the process owner.
// owner is read once by the caller, normally os.Getpid().
func New(st store.Store, owner int, opts ...Option) *Scheduler {
	s := &Scheduler{
		st:    st,
		owner: owner,
		now:   time.Now,
		unit:  time.Minute,
		poll:  countdown.DefaultPollInterval,
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run activates rec, blocks until its countdown elapses or ctx is cancelled,
// and persists the outcome. Cancelling ctx cancels the session; the terminal
// update is still written.
func (s *Scheduler) Run(ctx context.Context, rec session.Record) (session.Record, error) {
	if rec.Duration <= 0 {
		return rec, ErrInvalidDuration
	}
	if st := rec.Status(nil); st != session.StatusNew {
		return rec, fmt.Errorf("%w: session %s is %s, not new", ErrExecution, rec.ShortID(), st)
	}
	if s.owner <= 0 {
		return rec, fmt.Errorf("%w: invalid owner pid %d", ErrExecution, s.owner)
	}

	// rec is returned untouched when activation fails
	pending := rec
	pending.StartedAt = s.now().Unix()
	pending.Owner = s.owner
	pending.OwnerStartedAt = s.ownerStartedAt
	active, err := s.st.InsertActive(ctx, pending)
	if err != nil {
		if owner, ok := store.AlreadyRunningOwner(err); ok {
			metrics.IncConflict()
			s.log.Info("session rejected", "kind", rec.Kind, "running_owner", owner)
			return rec, &AlreadyRunningError{Owner: owner}
		}
		return rec, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	log := s.log.With("id", active.ShortID(), "kind", active.Kind)
	log.Info("session started", "duration_min", active.Duration, "owner", active.Owner)
	metrics.IncStarted(active.Kind.String())
	s.emit(ctx, active)

	cd := &countdown.Countdown{
		Target:       time.Duration(active.Duration) * s.unit,
		PollInterval: s.poll,
		Progress:     s.progress,
	}
	res, cdErr := cd.Wait(ctx)

	// the outcome must be persisted even though ctx may be cancelled by now
	done := context.WithoutCancel(ctx)
	out := store.Finished(s.now().Unix())
	if cdErr != nil || res.Cancelled {
		out = store.Cancelled(s.now().Unix())
	}
	final, err := s.st.UpdateTerminal(done, active.ID, out)
	if err != nil {
		log.Error("terminal update failed, inspect the session store", "outcome", out.String(), "error", err)
		metrics.SetInactive()
		stamped := stamp(active, out)
		if cdErr != nil {
			return stamped, errors.Join(fmt.Errorf("%w: %w", ErrExecution, cdErr), fmt.Errorf("%w: %s as %s: %w", ErrTerminalUpdate, active.ShortID(), out, err))
		}
		return stamped, fmt.Errorf("%w: %s as %s: %w", ErrTerminalUpdate, active.ShortID(), out, err)
	}
	metrics.ObserveTerminal(final.Kind.String(), out.String(), res.Elapsed.Seconds())
	s.emit(done, final)
	if cdErr != nil {
		log.Error("countdown failed, session cancelled", "error", cdErr)
		return final, fmt.Errorf("%w: %w", ErrExecution, cdErr)
	}
	log.Info("session "+out.String(), "elapsed", res.Elapsed.Round(time.Millisecond))
	return final, nil
}

func (s *Scheduler) emit(ctx context.Context, r session.Record) {
	if s.sink == nil {
		return
	}
	e := history.NewEvent(r, s.now())
	if err := s.sink.Send(ctx, e); err != nil {
		s.log.Warn("history export failed", "id", r.ShortID(), "event", e.Type, "error", err)
	}
}

// stamp applies an outcome in memory, mirroring what UpdateTerminal stores.
func stamp(r session.Record, o store.Outcome) session.Record {
	r.Owner = 0
	if o.Cancelled {
		r.CancelledAt = o.At
	} else {
		r.FinishedAt = o.At
	}
	return r
}
