package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

// progressBar redraws a single terminal line once per reported second.
// Updates arriving after Done are dropped.
type progressBar struct {
	w      io.Writer
	filled lipgloss.Style
	empty  lipgloss.Style

	mu   sync.Mutex
	done bool
}

// newProgressBar returns nil when w is not a terminal.
func newProgressBar(w io.Writer) *progressBar {
	if !isTerminal(w) {
		return nil
	}
	return &progressBar{
		w:      w,
		filled: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		empty:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (p *progressBar) Update(elapsed, target time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	_, _ = fmt.Fprintf(p.w, "\r%s", p.render(elapsed, target))
}

// Done ends the progress line. It waits for an Update in flight.
func (p *progressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	_, _ = fmt.Fprintln(p.w)
}

func (p *progressBar) render(elapsed, target time.Duration) string {
	n := 0
	if target > 0 {
		n = int(float64(barWidth) * float64(elapsed) / float64(target))
	}
	n = min(max(n, 0), barWidth)
	bar := p.filled.Render(strings.Repeat("█", n)) + p.empty.Render(strings.Repeat("░", barWidth-n))
	return fmt.Sprintf("%s %s / %s", bar, clock(elapsed), clock(target))
}

// clock renders d as mm:ss, or h:mm:ss past an hour.
func clock(d time.Duration) string {
	d = d.Truncate(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
