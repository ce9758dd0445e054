package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loykin/gomato/internal/session"
	"github.com/loykin/gomato/internal/store"
)

// ClearPollInterval is how often Clear re-reads a signalled session.
const ClearPollInterval = 100 * time.Millisecond

// ErrStillRunning is returned by Clear when a live owner ignored the interrupt.
var ErrStillRunning = errors.New("session owner did not stop")

// Clear removes the active session so a new one can start. A live owner is sent
// an interrupt through signal and given up to wait to record the cancellation
// itself. A stale session, or one whose owner died without terminating it, is
// marked cancelled directly. Clear returns nil when nothing was active.
func Clear(ctx context.Context, st store.Store, alive session.AliveFunc, signal func(pid int) error, wait time.Duration) (*session.Record, error) {
	active, err := st.FindActive(ctx)
	if err != nil || active == nil {
		return nil, err
	}

	if active.Status(alive) == session.StatusActive {
		if err := signal(active.Owner); err != nil {
			return nil, fmt.Errorf("interrupt pid %d: %w", active.Owner, err)
		}
		rec, err := awaitTerminal(ctx, st, *active, alive, wait)
		if err != nil || rec.Terminated() {
			return rec, err
		}
	}

	cancelled, err := st.UpdateTerminal(ctx, active.ID, store.Cancelled(time.Now().Unix()))
	if err != nil {
		// the owner may have terminated it between the checks
		if cur, ferr := st.FindByID(ctx, active.ID); ferr == nil && cur.Terminated() {
			return &cur, nil
		}
		return nil, err
	}
	return &cancelled, nil
}

// awaitTerminal polls r until it terminates, its owner dies or wait expires.
// The returned record is unterminated only when the owner died.
func awaitTerminal(ctx context.Context, st store.Store, r session.Record, alive session.AliveFunc, wait time.Duration) (*session.Record, error) {
	deadline := time.Now().Add(wait)
	t := time.NewTicker(ClearPollInterval)
	defer t.Stop()
	for {
		cur, err := st.FindByID(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		switch cur.Status(alive) {
		case session.StatusCancelled, session.StatusFinished, session.StatusStale:
			return &cur, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: pid %d still owns %s after %s", ErrStillRunning, r.Owner, r.ShortID(), wait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
