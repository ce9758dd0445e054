package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/loykin/gomato/internal/session"
	"github.com/loykin/gomato/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// The path is a filesystem path to the database file. Use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

var _ store.Store = (*DB)(nil)

// New opens a SQLite database at path, creating its parent directory if needed.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	dsn := p
	if !isMemory(p) {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + uriPath.Replace(filepath.ToSlash(p)) + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite works best with a single connection; :memory: requires it.
	d.SetMaxOpenConns(1)
	if isMemory(p) {
		_, _ = d.Exec("PRAGMA busy_timeout=5000;")
	}
	return &DB{db: d}, nil
}

// uriPath escapes the characters a SQLite URI filename would otherwise read
// as an escape, the query or the fragment.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func isMemory(p string) bool {
	return p == ":memory:" || strings.Contains(p, "mode=memory")
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions(
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			owner INTEGER NULL,
			owner_started_at INTEGER NULL,
			duration INTEGER NOT NULL CHECK (duration > 0),
			started_at INTEGER NOT NULL,
			finished_at INTEGER NULL,
			cancelled_at INTEGER NULL,
			CHECK (finished_at IS NULL OR cancelled_at IS NULL)
		);`,
		// At most one row may have an owner and no terminal timestamp.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_active
			ON sessions((owner IS NOT NULL))
			WHERE owner IS NOT NULL AND finished_at IS NULL AND cancelled_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) InsertActive(ctx context.Context, rec session.Record) (session.Record, error) {
	if err := rec.Validate(); err != nil {
		return session.Record{}, fmt.Errorf("%w: %v", store.ErrCannotSave, err)
	}
	if rec.StartedAt == 0 {
		rec.StartedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, kind, owner, owner_started_at, duration, started_at)
		VALUES(?, ?, ?, ?, ?, ?);`,
		rec.ID.String(), string(rec.Kind), rec.Owner, store.NullIfZero(rec.OwnerStartedAt), rec.Duration, rec.StartedAt)
	if err != nil {
		if isConstraintError(err) {
			return session.Record{}, store.Conflict(ctx, s, rec, err)
		}
		return session.Record{}, fmt.Errorf("%w: insert %s: %v", store.ErrCannotSave, rec.ID, err)
	}
	// the committed row holds exactly rec
	return rec, nil
}

func (s *DB) UpdateTerminal(ctx context.Context, id uuid.UUID, o store.Outcome) (session.Record, error) {
	if o.At <= 0 {
		o.At = time.Now().Unix()
	}
	q := `UPDATE sessions SET owner = NULL, finished_at = ?
		WHERE id = ? AND owner IS NOT NULL AND finished_at IS NULL AND cancelled_at IS NULL;`
	if o.Cancelled {
		q = `UPDATE sessions SET owner = NULL, cancelled_at = ?
		WHERE id = ? AND owner IS NOT NULL AND finished_at IS NULL AND cancelled_at IS NULL;`
	}
	res, err := s.db.ExecContext(ctx, q, o.At, id.String())
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
	updated, err := s.FindByID(ctx, id)
	if err != nil {
		return session.Record{}, fmt.Errorf("%w: read back %s: %w", store.ErrCannotUpdate, id, err)
	}
	return updated, nil
}

func (s *DB) FindActive(ctx context.Context) (*session.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+store.Columns+`
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

func (s *DB) FindByID(ctx context.Context, id uuid.UUID) (session.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+store.Columns+` FROM sessions WHERE id = ?;`, id.String())
	r, err := store.ScanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, fmt.Errorf("%w: %s does not exist", store.ErrCannotFind, id)
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("%w: %s: %v", store.ErrCannotFind, id, err)
	}
	return r, nil
}

func (s *DB) List(ctx context.Context, limit int) ([]session.Record, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+store.Columns+`
		FROM sessions
		ORDER BY started_at DESC, id
		LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", store.ErrCannotFind, err)
	}
	defer func() { _ = rows.Close() }()
	out, err := store.ScanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", store.ErrCannotFind, err)
	}
	return out, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
