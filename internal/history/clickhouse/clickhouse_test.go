package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/gomato/internal/history"
	"github.com/loykin/gomato/internal/session"
)

// setupClickHouseContainer starts a ClickHouse container for testing and
// skips the test when Docker is not available.
func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	clickHouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start ClickHouse container: %v", err)
	}

	host, err := clickHouseContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickHouseContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	return clickHouseContainer, host + ":" + port.Port()
}

func setupSinkWithTable(ctx context.Context, t *testing.T, addr, table string) *Sink {
	t.Helper()
	sink, err := New(addr, table, Options{})
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	if err := sink.conn.Exec(ctx, Schema(table)); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return sink
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, addr := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	sink := setupSinkWithTable(ctx, t, addr, "session_history")
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	rec, err := session.New(session.KindPomodoro, 25)
	if err != nil {
		t.Fatal(err)
	}
	rec.Owner = 12345
	rec.StartedAt = time.Now().Add(-time.Minute).Unix()

	if err := sink.Send(ctx, history.NewEvent(rec, time.Now())); err != nil {
		t.Fatalf("Failed to send start event: %v", err)
	}

	rec.Owner = 0
	rec.FinishedAt = time.Now().Unix()
	if err := sink.Send(ctx, history.NewEvent(rec, time.Now())); err != nil {
		t.Fatalf("Failed to send finish event: %v", err)
	}

	row := sink.conn.QueryRow(ctx, "SELECT COUNT(*) FROM session_history WHERE session_id = ?", rec.ID)
	var count uint64
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events, got %d", count)
	}
}

func TestClickHouseSink_ConnectionError(t *testing.T) {
	if _, err := New("invalid-host:9000", "session_history", Options{}); err == nil {
		t.Error("Expected error with invalid connection, got nil")
	}
}
