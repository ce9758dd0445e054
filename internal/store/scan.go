package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/loykin/gomato/internal/session"
)

// Columns is the select list understood by ScanRecord, shared by the SQL implementations.
const Columns = "id, kind, owner, owner_started_at, duration, started_at, finished_at, cancelled_at"

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanRecord decodes one row selected with Columns.
func ScanRecord(s RowScanner) (session.Record, error) {
	var (
		id, kind                string
		owner, ownerStart       sql.NullInt64
		finishedAt, cancelledAt sql.NullInt64
		r                       session.Record
	)
	if err := s.Scan(&id, &kind, &owner, &ownerStart, &r.Duration, &r.StartedAt, &finishedAt, &cancelledAt); err != nil {
		return session.Record{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return session.Record{}, fmt.Errorf("corrupt session id %q: %w", id, err)
	}
	k, err := session.ParseKind(kind)
	if err != nil {
		return session.Record{}, err
	}
	r.ID = parsed
	r.Kind = k
	r.Owner = int(owner.Int64)
	r.OwnerStartedAt = ownerStart.Int64
	r.FinishedAt = finishedAt.Int64
	r.CancelledAt = cancelledAt.Int64
	return r, nil
}

// ScanRecords drains rows into a slice.
func ScanRecords(rows *sql.Rows) ([]session.Record, error) {
	out := make([]session.Record, 0)
	for rows.Next() {
		r, err := ScanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NullIfZero maps unset (zero) values to SQL NULL.
func NullIfZero(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

// Conflict resolves a uniqueness violation raised by an insert into the
// AlreadyRunningError naming the current owner. If the conflicting session
// terminated in the meantime the insert is reported as ErrCannotSave.
func Conflict(ctx context.Context, s Store, rec session.Record, cause error) error {
	active, err := s.FindActive(ctx)
	if err == nil && active != nil {
		return &AlreadyRunningError{Owner: active.Owner}
	}
	return fmt.Errorf("%w: %s could not be inserted as active and no active session was found: %v", ErrCannotSave, rec.ID, cause)
}
