package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is the type of a timed session.
type Kind string

const (
	KindPomodoro Kind = "pomodoro"
	KindBreak    Kind = "break"
)

// ErrInvalidDuration is returned for sessions requested with a non-positive length.
var ErrInvalidDuration = errors.New("duration must be a positive number of minutes")

// UnknownKindError reports a kind that is neither a pomodoro nor a break.
type UnknownKindError struct {
	Offender string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown session kind %q (expected pomodoro or break)", e.Offender)
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindPomodoro):
		return KindPomodoro, nil
	case string(KindBreak):
		return KindBreak, nil
	default:
		return "", &UnknownKindError{Offender: s}
	}
}

func (k Kind) String() string { return string(k) }

// Record is the persisted unit of work. Timestamps are epoch seconds; zero means unset.
// Owner is the pid driving the countdown and is only meaningful until the record terminates.
// OwnerStartedAt is the owner's process start time, used to detect pid reuse (0 = unknown).
type Record struct {
	ID             uuid.UUID `json:"id"`
	Kind           Kind      `json:"kind"`
	Owner          int       `json:"owner,omitempty"`
	OwnerStartedAt int64     `json:"owner_started_at,omitempty"`
	Duration       int       `json:"duration"`
	StartedAt      int64     `json:"started_at"`
	FinishedAt     int64     `json:"finished_at,omitempty"`
	CancelledAt    int64     `json:"cancelled_at,omitempty"`
}

// New creates a record in status New.
func New(kind Kind, minutes int) (Record, error) {
	if minutes <= 0 {
		return Record{}, ErrInvalidDuration
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return Record{}, err
	}
	return Record{ID: uuid.New(), Kind: kind, Duration: minutes}, nil
}

// Terminated reports whether the record reached Cancelled or Finished.
func (r Record) Terminated() bool {
	return r.CancelledAt != 0 || r.FinishedAt != 0
}

// Validate checks the preconditions for persisting r as the active session.
func (r Record) Validate() error {
	if r.ID == uuid.Nil {
		return errors.New("session id is required")
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if r.Duration <= 0 {
		return ErrInvalidDuration
	}
	if r.Owner <= 0 {
		return fmt.Errorf("session %s has no owner", r.ID)
	}
	if r.Terminated() {
		return fmt.Errorf("session %s is already terminated", r.ID)
	}
	return nil
}

// ShortID is the id without dashes, the form shown to users.
func (r Record) ShortID() string {
	return strings.ReplaceAll(r.ID.String(), "-", "")
}
