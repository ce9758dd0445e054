package scheduler

import (
	"errors"
	"fmt"

	"github.com/loykin/gomato/internal/session"
)

var (
	// ErrAlreadyRunning matches every *AlreadyRunningError via errors.Is.
	ErrAlreadyRunning = errors.New("a session is already running")
	// ErrExecution reports a run that could not be carried out.
	ErrExecution = errors.New("session execution failed")
	// ErrInvalidDuration rejects sessions with a non-positive length.
	ErrInvalidDuration = session.ErrInvalidDuration
	// ErrTerminalUpdate means the countdown ended but the store does not know.
	// The session row needs manual inspection.
	ErrTerminalUpdate = errors.New("terminal update failed")
)

// AlreadyRunningError is returned when another session is Active or Stale.
// The scheduler never clears it on its own; see Clear.
type AlreadyRunningError struct {
	Owner int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("already running as pid %d", e.Owner)
}

func (e *AlreadyRunningError) Is(target error) bool { return target == ErrAlreadyRunning }
