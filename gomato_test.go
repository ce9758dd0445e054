package gomato

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestFacadeRunsSessionToFinished(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	rec, err := NewSession(KindBreak, 2)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	final, err := NewScheduler(st, WithUnit(5*time.Millisecond)).Run(ctx, rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if s := StatusOf(final); s.String() != "finished" {
		t.Fatalf("expected finished, got %s", s)
	}
	if final.Owner != 0 {
		t.Fatalf("owner must be released: %+v", final)
	}

	cleared, err := Clear(ctx, st, time.Second)
	if err != nil || cleared != nil {
		t.Fatalf("nothing should be active, got %v %v", cleared, err)
	}
}

func TestFacadeErrors(t *testing.T) {
	if _, err := NewSession(KindPomodoro, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := OpenStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
	if _, err := NewHistorySink("redis://localhost"); err == nil {
		t.Fatalf("expected error for unsupported sink")
	}
}

func TestFacadeMetrics(t *testing.T) {
	if err := RegisterMetrics(prometheus.NewRegistry()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("register default: %v", err)
	}
	path := filepath.Join(t.TempDir(), "gomato.prom")
	if err := WriteMetricsTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("textfile missing: %v", err)
	}
}
