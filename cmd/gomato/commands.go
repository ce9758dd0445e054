package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/loykin/gomato/internal/detector"
	"github.com/loykin/gomato/internal/scheduler"
	"github.com/loykin/gomato/internal/session"
)

// command holds what every subcommand needs; each method opens its own app.
type command struct {
	global *GlobalFlags
	stdout io.Writer
	stderr io.Writer
}

const timeLayout = "2006-01-02 15:04:05"

func formatTime(ts int64) string {
	return time.Unix(ts, 0).Local().Format(timeLayout)
}

// Start runs a session of kind in the foreground until it ends.
func (c *command) Start(ctx context.Context, kind session.Kind, f StartFlags) (err error) {
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	minutes := a.cfg.Pomodoro.Duration
	if kind == session.KindBreak {
		minutes = a.cfg.Break.Duration
	}
	if f.DurationSet {
		minutes = f.Minutes
	}
	rec, err := session.New(kind, minutes)
	if err != nil {
		return err
	}

	if f.Force {
		cleared, err := scheduler.Clear(ctx, a.store, detector.SessionAlive, detector.Interrupt, f.Wait)
		if err != nil {
			return fmt.Errorf("clear active session: %w", err)
		}
		if cleared != nil {
			_, _ = fmt.Fprintf(c.stdout, "Cleared %s\n", session.Describe(*cleared, cleared.Status(nil), formatTime))
		}
	}

	pid := os.Getpid()
	opts := []scheduler.Option{
		scheduler.WithLogger(a.log),
		scheduler.WithUnit(c.global.TimeUnit),
		scheduler.WithOwnerStartedAt(detector.ProcStartUnix(pid)),
	}
	if len(a.sinks) > 0 {
		opts = append(opts, scheduler.WithSink(a.sinks))
	}
	bar := newProgressBar(c.stderr)
	if bar != nil {
		opts = append(opts, scheduler.WithProgress(bar.Update))
	}

	_, _ = fmt.Fprintf(c.stdout, "Starting %s\n", session.Describe(rec, session.StatusNew, formatTime))
	final, err := scheduler.New(a.store, pid, opts...).Run(ctx, rec)
	if bar != nil {
		bar.Done()
	}
	if err != nil {
		return err
	}
	status := final.Status(nil)
	_, _ = fmt.Fprintln(c.stdout, styleFor(c.stdout, status).Render(session.Describe(final, status, formatTime)))
	if status == session.StatusCancelled {
		return errCancelled
	}
	return nil
}

// Status prints the active session, detecting stale owners.
func (c *command) Status(ctx context.Context) (err error) {
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	active, err := a.store.FindActive(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		_, _ = fmt.Fprintln(c.stdout, "Nothing active")
		return nil
	}
	status := active.Status(detector.SessionAlive)
	a.log.Debug("owner checked", "detector", detector.ForSession(*active).Describe(), "status", status.String())
	_, _ = fmt.Fprintln(c.stdout, styleFor(c.stdout, status).Render(session.Describe(*active, status, formatTime)))
	if status == session.StatusActive {
		elapsed := time.Since(time.Unix(active.StartedAt, 0)).Truncate(time.Second)
		_, _ = fmt.Fprintf(c.stdout, "Elapsed %s of %d min\n", elapsed, active.Duration)
	}
	return nil
}

// Cancel interrupts the active session's owner, or cancels a stale session directly.
func (c *command) Cancel(ctx context.Context, f CancelFlags) (err error) {
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	cleared, err := scheduler.Clear(ctx, a.store, detector.SessionAlive, detector.Interrupt, f.Wait)
	if err != nil {
		return err
	}
	if cleared == nil {
		_, _ = fmt.Fprintln(c.stdout, "Nothing active")
		return nil
	}
	a.log.Info("session cleared", "id", cleared.ID, "kind", cleared.Kind)
	status := cleared.Status(nil)
	_, _ = fmt.Fprintln(c.stdout, styleFor(c.stdout, status).Render(session.Describe(*cleared, status, formatTime)))
	return nil
}

// History prints the most recent sessions, newest first.
func (c *command) History(ctx context.Context, f HistoryFlags) (err error) {
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	recs, err := a.store.List(ctx, f.Limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(c.stdout, "No sessions yet")
		return nil
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "KIND", "MIN", "STARTED", "STATUS")
	for _, r := range recs {
		t.Row(r.ShortID(), r.Kind.String(), fmt.Sprint(r.Duration), formatTime(r.StartedAt), r.Status(detector.SessionAlive).String())
	}
	_, _ = fmt.Fprintln(c.stdout, t.Render())
	return nil
}

// styleFor colors a status line when w is a terminal.
func styleFor(w io.Writer, s session.Status) lipgloss.Style {
	st := lipgloss.NewStyle()
	if !isTerminal(w) {
		return st
	}
	switch s {
	case session.StatusActive:
		return st.Foreground(lipgloss.Color("10"))
	case session.StatusStale:
		return st.Foreground(lipgloss.Color("11"))
	case session.StatusCancelled:
		return st.Foreground(lipgloss.Color("9"))
	case session.StatusFinished:
		return st.Bold(true)
	}
	return st
}
