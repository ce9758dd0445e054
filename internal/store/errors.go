package store

import (
	"errors"
	"fmt"
)

var (
	ErrCannotSave   = errors.New("cannot save session")
	ErrCannotUpdate = errors.New("cannot update session")
	ErrCannotFind   = errors.New("cannot find session")
)

// AlreadyRunningError is returned by InsertActive when an unterminated session exists.
// Owner is the pid recorded on the conflicting session.
type AlreadyRunningError struct {
	Owner int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("already running as pid %d", e.Owner)
}

// AlreadyRunningOwner extracts the conflicting owner from err.
func AlreadyRunningOwner(err error) (int, bool) {
	var are *AlreadyRunningError
	if errors.As(err, &are) {
		return are.Owner, true
	}
	return 0, false
}
