package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/gomato/internal/config"
	"github.com/loykin/gomato/internal/history"
	hfactory "github.com/loykin/gomato/internal/history/factory"
	"github.com/loykin/gomato/internal/logger"
	"github.com/loykin/gomato/internal/metrics"
	"github.com/loykin/gomato/internal/store"
	"github.com/loykin/gomato/internal/store/factory"
)

// sessionRegistry holds only the session collectors so the textfile carries
// no Go runtime series. Registration is process-wide and happens once.
var sessionRegistry = prometheus.NewRegistry()

// app is everything one CLI invocation opens and must close again.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    store.Store
	sinks    history.Multi
	registry *prometheus.Registry

	logCloser io.Closer
}

// open loads configuration and opens the store, history sinks and logger.
func (c *command) open(ctx context.Context) (*app, error) {
	cfg, err := config.Load(c.global.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureRoot(); err != nil {
		return nil, fmt.Errorf("create root %s: %w", cfg.Root, err)
	}
	if c.global.Verbose {
		_, _ = fmt.Fprintf(c.stdout, "Using root %s\n", cfg.Root)
		_, _ = fmt.Fprintf(c.stdout, "Using database URL %s\n", redactURL(cfg.DatabaseURL))
		if cfg.File != "" {
			_, _ = fmt.Fprintf(c.stdout, "Using config %s\n", cfg.File)
		}
	}

	log, logCloser, err := logger.New(cfg.Logger(c.global.Verbose, isTerminal(c.stderr)), c.stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, logCloser: logCloser}

	st, err := factory.NewFromDSN(cfg.DatabaseURL)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	if err := st.EnsureSchema(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("prepare store: %w", err)
	}

	// Exports are best effort: a session still runs when a sink is unreachable.
	sinks, err := hfactory.NewSinksFromDSNs(cfg.History.DSNs)
	if err != nil {
		log.Warn("history export disabled", "error", err)
	}
	a.sinks = sinks

	if cfg.Metrics.Textfile != "" {
		if err := metrics.Register(sessionRegistry); err != nil {
			log.Warn("metrics disabled", "error", err)
		} else {
			a.registry = sessionRegistry
		}
	}
	log.Debug("environment ready", "root", cfg.Root, "sinks", len(a.sinks))
	return a, nil
}

// Close flushes metrics and releases everything open attempted to open.
func (a *app) Close() error {
	var errs []error
	if a.registry != nil {
		if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile, a.registry); err != nil {
			a.log.Warn("write metrics textfile", "path", a.cfg.Metrics.Textfile, "error", err)
		}
	}
	if a.sinks != nil {
		if err := a.sinks.Close(); err != nil {
			a.log.Warn("close history sinks", "error", err)
		}
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func redactURL(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
