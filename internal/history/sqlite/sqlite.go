package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/gomato/internal/history"
	"github.com/loykin/gomato/internal/store"
)

// Sink appends history events to a SQLite session_history table.
type Sink struct {
	db *sql.DB
}

// New creates a new SQLite history sink.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = dsn[len("sqlite://"):]
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// history writes are rare; one connection also keeps :memory: a single database
	db.SetMaxOpenConns(1)

	sink := &Sink{db: db}
	if err := sink.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sink, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_history(
			occurred_at TIMESTAMP NOT NULL DEFAULT (CURRENT_TIMESTAMP),
			event TEXT NOT NULL,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			duration INTEGER NOT NULL,
			owner INTEGER NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NULL,
			cancelled_at INTEGER NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_session ON session_history(session_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	rec := e.Record
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_history(occurred_at, event, session_id, kind, duration, owner, started_at, finished_at, cancelled_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		e.OccurredAt.UTC(), string(e.Type), rec.ID.String(), string(rec.Kind), rec.Duration,
		store.NullIfZero(int64(rec.Owner)), rec.StartedAt, store.NullIfZero(rec.FinishedAt), store.NullIfZero(rec.CancelledAt))
	return err
}

// Count returns the number of events recorded for a session.
func (s *Sink) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_history WHERE session_id = ?;`, sessionID).Scan(&n)
	return n, err
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
