package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/loykin/gomato/internal/session"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Outcome is the terminal transition applied by UpdateTerminal.
// At is the epoch-seconds timestamp stored in cancelled_at or finished_at.
type Outcome struct {
	Cancelled bool
	At        int64
}

func Cancelled(at int64) Outcome { return Outcome{Cancelled: true, At: at} }
func Finished(at int64) Outcome  { return Outcome{At: at} }

func (o Outcome) String() string {
	if o.Cancelled {
		return "cancelled"
	}
	return "finished"
}

// Store is the durable keeper of session records and the only enforcer of the
// single active session invariant. Implementations rely on a storage-level
// uniqueness constraint, so the guarantee holds across processes.
type Store interface {
	EnsureSchema(ctx context.Context) error
	// InsertActive persists an Active record, failing with *AlreadyRunningError
	// when another unterminated record exists.
	InsertActive(ctx context.Context, rec session.Record) (session.Record, error)
	// UpdateTerminal stamps the outcome on an unterminated record and clears its owner.
	UpdateTerminal(ctx context.Context, id uuid.UUID, o Outcome) (session.Record, error)
	// FindActive returns the unterminated record (Active or Stale), or nil.
	FindActive(ctx context.Context) (*session.Record, error)
	FindByID(ctx context.Context, id uuid.UUID) (session.Record, error)
	// List returns the most recently started records first.
	List(ctx context.Context, limit int) ([]session.Record, error)
	Close() error
}
