package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/loykin/gomato/internal/history"
)

// Options selects the ClickHouse database and credentials. Zero values mean
// the server defaults ("default" database, "default" user, empty password).
type Options struct {
	Database string
	Username string
	Password string
}

// Sink sends events to ClickHouse using the official ClickHouse Go client.
// The target table is created by the operator; see Schema.
type Sink struct {
	conn  driver.Conn
	table string
}

// Schema returns the DDL for a table compatible with Sink.
func Schema(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		type String,
		occurred_at DateTime64(6),
		session_id UUID,
		kind LowCardinality(String),
		duration UInt32,
		owner Nullable(Int64),
		started_at Int64,
		finished_at Nullable(Int64),
		cancelled_at Nullable(Int64)
	) ENGINE = MergeTree()
	ORDER BY (occurred_at, session_id)`
}

func New(addr, table string, opts Options) (*Sink, error) {
	if opts.Database == "" {
		opts.Database = "default"
	}
	if opts.Username == "" {
		opts.Username = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Sink{conn: conn, table: table}, nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func nullable(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (type, occurred_at, session_id, kind, duration, owner, started_at, finished_at, cancelled_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

	r := e.Record
	err := s.conn.Exec(ctx, query,
		string(e.Type),
		e.OccurredAt.UTC(),
		r.ID,
		string(r.Kind),
		uint32(r.Duration),
		nullable(int64(r.Owner)),
		r.StartedAt,
		nullable(r.FinishedAt),
		nullable(r.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}
	return nil
}
