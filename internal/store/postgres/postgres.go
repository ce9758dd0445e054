package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/gomato/internal/session"
	"github.com/loykin/gomato/internal/store"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type DB struct {
	db *sql.DB
}

var _ store.Store = (*DB)(nil)

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions(
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			owner INTEGER NULL,
			owner_started_at BIGINT NULL,
			duration INTEGER NOT NULL CHECK (duration > 0),
			started_at BIGINT NOT NULL,
			finished_at BIGINT NULL,
			cancelled_at BIGINT NULL,
			CHECK (finished_at IS NULL OR cancelled_at IS NULL)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_active
			ON sessions((owner IS NOT NULL))
			WHERE owner IS NOT NULL AND finished_at IS NULL AND cancelled_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) InsertActive(ctx context.Context, rec session.Record) (session.Record, error) {
	if err := rec.Validate(); err != nil {
		return session.Record{}, fmt.Errorf("%w: %v", store.ErrCannotSave, err)
	}
	if rec.StartedAt == 0 {
		rec.StartedAt = time.Now().Unix()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sessions(id, kind, owner, owner_started_at, duration, started_at)
		VALUES($1, $2, $3, $4, $5, $6);`,
		rec.ID.String(), string(rec.Kind), rec.Owner, store.NullIfZero(rec.OwnerStartedAt), rec.Duration, rec.StartedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return session.Record{}, store.Conflict(ctx, p, rec, err)
		}
		return session.Record{}, fmt.Errorf("%w: insert %s: %v", store.ErrCannotSave, rec.ID, err)
	}
	// the committed row holds exactly rec
	return rec, nil
}

func (p *DB) UpdateTerminal(ctx context.Context, id uuid.UUID, o store.Outcome) (session.Record, error) {
	if o.At <= 0 {
		o.At = time.Now().Unix()
	}
	q := `UPDATE sessions SET owner = NULL, finished_at = $1
		WHERE id = $2 AND owner IS NOT NULL AND finished_at IS NULL AND cancelled_at IS NULL;`
	if o.Cancelled {
		q = `UPDATE sessions SET owner = NULL, cancelled_at = $1
		WHERE id = $2 AND owner IS NOT NULL AND finished_at IS NULL AND cancelled_at IS NULL;`
	}
	res, err := p.db.ExecContext(ctx, q, o.At, id.String())
	if err != nil {
		return session.Record{}, fmt.Errorf("%w: %s as %s: %v", store.ErrCannotUpdate, id, o, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return session.Record{}, fmt.Errorf("%w: %s as %s: %v", store.ErrCannotUpdate, id, o, err)
	}
	if n == 0 {
		return session.Record{}, fmt.Errorf("%w: no unterminated session %s", store.ErrCannotUpdate, id)
	}
	updated, err := p.FindByID(ctx, id)
	if err != nil {
		return session.Record{}, fmt.Errorf("%w: read back %s: %w", store.ErrCannotUpdate, id, err)
	}
	return updated, nil
}

func (p *DB) FindActive(ctx context.Context) (*session.Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id::TEXT, kind, owner, owner_started_at, duration, started_at, finished_at, cancelled_at
		FROM sessions
		WHERE owner IS NOT NULL AND finished_at IS NULL AND cancelled_at IS NULL
		LIMIT 1;`)
	r, err := store.ScanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: active session: %v", store.ErrCannotFind, err)
	}
	return &r, nil
}

func (p *DB) FindByID(ctx context.Context, id uuid.UUID) (session.Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id::TEXT, kind, owner, owner_started_at, duration, started_at, finished_at, cancelled_at
		FROM sessions WHERE id = $1;`, id.String())
	r, err := store.ScanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, fmt.Errorf("%w: %s does not exist", store.ErrCannotFind, id)
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("%w: %s: %v", store.ErrCannotFind, id, err)
	}
	return r, nil
}

func (p *DB) List(ctx context.Context, limit int) ([]session.Record, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::TEXT, kind, owner, owner_started_at, duration, started_at, finished_at, cancelled_at
		FROM sessions
		ORDER BY started_at DESC, id
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", store.ErrCannotFind, err)
	}
	defer rows.Close()
	out, err := store.ScanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", store.ErrCannotFind, err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
