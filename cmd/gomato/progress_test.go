package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestProgressBarOnlyOnTerminals(t *testing.T) {
	if bar := newProgressBar(&bytes.Buffer{}); bar != nil {
		t.Fatalf("expected no progress bar for a buffer")
	}
}

func TestProgressBarRender(t *testing.T) {
	var buf bytes.Buffer
	p := &progressBar{w: &buf}

	p.Update(15*time.Second, time.Minute)
	p.Done()
	got := buf.String()
	if !strings.HasPrefix(got, "\r") || !strings.HasSuffix(got, "\n") {
		t.Fatalf("unexpected framing %q", got)
	}
	if !strings.Contains(got, "00:15 / 01:00") {
		t.Fatalf("missing clock in %q", got)
	}
	if n := strings.Count(got, "█"); n != barWidth/4 {
		t.Fatalf("filled cells = %d, want %d", n, barWidth/4)
	}

	full := p.render(2*time.Minute, time.Minute)
	if strings.Count(full, "█") != barWidth || strings.Contains(full, "░") {
		t.Fatalf("overrun should clamp to a full bar: %q", full)
	}
}

func TestProgressBarIgnoresUpdatesAfterDone(t *testing.T) {
	var buf bytes.Buffer
	p := &progressBar{w: &buf}
	p.Update(time.Second, time.Minute)
	p.Done()
	p.Update(2*time.Second, time.Minute)
	p.Done()

	got := buf.String()
	if strings.Count(got, "\r") != 1 || strings.Count(got, "\n") != 1 || !strings.HasSuffix(got, "\n") {
		t.Fatalf("late update leaked past Done: %q", got)
	}
}

func TestClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{59*time.Second + 900*time.Millisecond, "00:59"},
		{25 * time.Minute, "25:00"},
		{time.Hour + 2*time.Minute + 5*time.Second, "1:02:05"},
	}
	for _, tc := range cases {
		if got := clock(tc.d); got != tc.want {
			t.Errorf("clock(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
