package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/gomato/internal/session"
	"github.com/loykin/gomato/internal/store"
)

func insertActive(t *testing.T, st store.Store, owner int) session.Record {
	t.Helper()
	r := newRecord(t, session.KindPomodoro, 25)
	r.Owner = owner
	r.StartedAt = 1700000000
	saved, err := st.InsertActive(context.Background(), r)
	require.NoError(t, err)
	return saved
}

func noSignal(t *testing.T) func(int) error {
	return func(pid int) error {
		t.Fatalf("unexpected signal to pid %d", pid)
		return nil
	}
}

func TestClearNothingActive(t *testing.T) {
	db := openStore(t)
	rec, err := Clear(context.Background(), db, alwaysAlive, noSignal(t), time.Second)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClearStaleSession(t *testing.T) {
	db := openStore(t)
	stale := insertActive(t, db, otherPID)

	rec, err := Clear(context.Background(), db, neverAlive, noSignal(t), time.Second)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, stale.ID, rec.ID)
	assert.Equal(t, session.StatusCancelled, rec.Status(neverAlive))

	active, err := db.FindActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active)
}

// The owner reacts to the interrupt by recording its own cancellation.
func TestClearLiveOwnerCancelsItself(t *testing.T) {
	db := openStore(t)
	live := insertActive(t, db, otherPID)

	var signalled int
	signal := func(pid int) error {
		signalled = pid
		go func() {
			time.Sleep(20 * time.Millisecond)
			_, _ = db.UpdateTerminal(context.Background(), live.ID, store.Cancelled(1700000100))
		}()
		return nil
	}
	rec, err := Clear(context.Background(), db, alwaysAlive, signal, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, otherPID, signalled)
	assert.Equal(t, int64(1700000100), rec.CancelledAt)
}

// The owner dies from the interrupt without writing its outcome.
func TestClearOwnerDiesWithoutUpdate(t *testing.T) {
	db := openStore(t)
	insertActive(t, db, otherPID)

	dead := false
	alive := func(session.Record) bool { return !dead }
	signal := func(int) error {
		dead = true
		return nil
	}
	rec, err := Clear(context.Background(), db, alive, signal, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, session.StatusCancelled, rec.Status(alive))
}

func TestClearOwnerIgnoresInterrupt(t *testing.T) {
	db := openStore(t)
	live := insertActive(t, db, otherPID)

	_, err := Clear(context.Background(), db, alwaysAlive, func(int) error { return nil }, 150*time.Millisecond)
	require.ErrorIs(t, err, ErrStillRunning)

	still, err := db.FindByID(context.Background(), live.ID)
	require.NoError(t, err)
	assert.Equal(t, otherPID, still.Owner)
}

func TestClearSignalError(t *testing.T) {
	db := openStore(t)
	insertActive(t, db, otherPID)
	boom := errors.New("operation not permitted")
	_, err := Clear(context.Background(), db, alwaysAlive, func(int) error { return boom }, time.Second)
	require.ErrorIs(t, err, boom)
}

// After clearing, a new session can be scheduled.
func TestClearThenRun(t *testing.T) {
	db := openStore(t)
	insertActive(t, db, otherPID)

	_, err := newScheduler(db).Run(context.Background(), newRecord(t, session.KindBreak, 1))
	require.ErrorIs(t, err, ErrAlreadyRunning)

	_, err = Clear(context.Background(), db, neverAlive, noSignal(t), time.Second)
	require.NoError(t, err)

	final, err := newScheduler(db).Run(context.Background(), newRecord(t, session.KindBreak, 1))
	require.NoError(t, err)
	assert.Equal(t, session.StatusFinished, final.Status(nil))
}
