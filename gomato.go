package gomato

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/gomato/internal/config"
	"github.com/loykin/gomato/internal/detector"
	"github.com/loykin/gomato/internal/history"
	hfactory "github.com/loykin/gomato/internal/history/factory"
	"github.com/loykin/gomato/internal/metrics"
	"github.com/loykin/gomato/internal/scheduler"
	"github.com/loykin/gomato/internal/session"
	"github.com/loykin/gomato/internal/store"
	"github.com/loykin/gomato/internal/store/factory"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Record = session.Record

type Kind = session.Kind

type Status = session.Status

type Store = store.Store

type Scheduler = scheduler.Scheduler

type Option = scheduler.Option

type HistorySink = history.Sink

type HistoryEvent = history.Event

type Config = config.Config

const (
	KindPomodoro = session.KindPomodoro
	KindBreak    = session.KindBreak
)

var (
	ErrAlreadyRunning  = scheduler.ErrAlreadyRunning
	ErrExecution       = scheduler.ErrExecution
	ErrInvalidDuration = scheduler.ErrInvalidDuration
	ErrTerminalUpdate  = scheduler.ErrTerminalUpdate
)

// Scheduler options.
var (
	WithUnit     = scheduler.WithUnit
	WithSink     = scheduler.WithSink
	WithLogger   = scheduler.WithLogger
	WithProgress = scheduler.WithProgress
	WithClock    = scheduler.WithClock
)

func NewSession(kind Kind, minutes int) (Record, error) { return session.New(kind, minutes) }

// OpenStore opens the store named by dsn and prepares its schema.
func OpenStore(ctx context.Context, dsn string) (Store, error) {
	st, err := factory.NewFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("prepare store: %w", err)
	}
	return st, nil
}

// NewScheduler returns a scheduler owned by the calling process.
func NewScheduler(st Store, opts ...Option) *Scheduler {
	pid := os.Getpid()
	all := append([]Option{scheduler.WithOwnerStartedAt(detector.ProcStartUnix(pid))}, opts...)
	return scheduler.New(st, pid, all...)
}

// StatusOf derives r's status, checking whether its owner process still exists.
func StatusOf(r Record) Status { return r.Status(detector.SessionAlive) }

// Clear cancels the active session, interrupting a live owner and waiting up to wait.
func Clear(ctx context.Context, st Store, wait time.Duration) (*Record, error) {
	return scheduler.Clear(ctx, st, detector.SessionAlive, detector.Interrupt, wait)
}

func NewHistorySink(dsn string) (HistorySink, error) { return hfactory.NewSinkFromDSN(dsn) }

func LoadConfig(path string) (*Config, error) { return config.Load(path) }

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// WriteMetricsTextfile writes the default registry in node_exporter textfile format.
func WriteMetricsTextfile(path string) error { return metrics.WriteTextfile(path, nil) }
