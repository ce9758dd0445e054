package session

import "fmt"

// Status is derived from the timestamps and the owner's liveness; it is never stored.
type Status int

const (
	StatusNew Status = iota
	StatusActive
	StatusStale
	StatusCancelled
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusActive:
		return "active"
	case StatusStale:
		return "stale"
	case StatusCancelled:
		return "cancelled"
	case StatusFinished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// AliveFunc reports whether the owner of a started record still exists.
type AliveFunc func(Record) bool

// Status derives the record's status. alive is only consulted for started,
// unterminated records; a nil alive treats every owner as alive.
func (r Record) Status(alive AliveFunc) Status {
	switch {
	case r.CancelledAt != 0:
		return StatusCancelled
	case r.FinishedAt != 0:
		return StatusFinished
	case r.StartedAt == 0:
		return StatusNew
	case alive != nil && !alive(r):
		return StatusStale
	default:
		return StatusActive
	}
}

// TimeFormatter renders an epoch-seconds timestamp for display.
type TimeFormatter func(int64) string

// Describe renders a one-line human description of r in the given status.
func Describe(r Record, s Status, ft TimeFormatter) string {
	if ft == nil {
		ft = func(ts int64) string { return fmt.Sprint(ts) }
	}
	switch s {
	case StatusNew:
		return fmt.Sprintf("%s (%d min)", r.Kind, r.Duration)
	case StatusActive:
		return fmt.Sprintf("%s %s is active since %s", r.Kind, r.ShortID(), ft(r.StartedAt))
	case StatusStale:
		return fmt.Sprintf("%s %s is stale (pid %d does not exist)", r.Kind, r.ShortID(), r.Owner)
	case StatusCancelled:
		return fmt.Sprintf("%s %s was cancelled at %s", r.Kind, r.ShortID(), ft(r.CancelledAt))
	case StatusFinished:
		return fmt.Sprintf("%s %s was finished at %s", r.Kind, r.ShortID(), ft(r.FinishedAt))
	default:
		return fmt.Sprintf("%s %s", r.Kind, r.ShortID())
	}
}
