package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewRejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []int{0, -1, -25} {
		if _, err := New(KindPomodoro, d); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %d: expected ErrInvalidDuration, got %v", d, err)
		}
	}
	r, err := New(KindBreak, 5)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if r.ID == uuid.Nil || r.Kind != KindBreak || r.Duration != 5 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.Status(nil) != StatusNew {
		t.Fatalf("fresh record should be new, got %v", r.Status(nil))
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"pomodoro": KindPomodoro, "Pomodoro": KindPomodoro, " BREAK ": KindBreak}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	_, err := ParseKind("nap")
	var uk *UnknownKindError
	if !errors.As(err, &uk) || uk.Offender != "nap" {
		t.Fatalf("expected UnknownKindError for nap, got %v", err)
	}
}

func FuzzParseKind(f *testing.F) {
	f.Add("pomodoro")
	f.Add("break")
	f.Add("")
	f.Fuzz(func(t *testing.T, s string) {
		k, err := ParseKind(s)
		if err == nil && k != KindPomodoro && k != KindBreak {
			t.Fatalf("ParseKind(%q) returned unexpected kind %q", s, k)
		}
	})
}

func TestStatusPrecedence(t *testing.T) {
	alive := func(Record) bool { return true }
	dead := func(Record) bool { return false }

	tests := []struct {
		name  string
		rec   Record
		alive AliveFunc
		want  Status
	}{
		{"new", Record{}, dead, StatusNew},
		{"active", Record{Owner: 7, StartedAt: 100}, alive, StatusActive},
		{"stale", Record{Owner: 7, StartedAt: 100}, dead, StatusStale},
		{"finished", Record{StartedAt: 100, FinishedAt: 200}, dead, StatusFinished},
		{"cancelled", Record{StartedAt: 100, CancelledAt: 150}, alive, StatusCancelled},
		{"cancelled wins over finished", Record{StartedAt: 100, FinishedAt: 200, CancelledAt: 150}, alive, StatusCancelled},
		{"nil liveness means active", Record{Owner: 7, StartedAt: 100}, nil, StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Status(tt.alive); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLivenessOnlyConsultedForStartedRecords(t *testing.T) {
	calls := 0
	probe := func(Record) bool { calls++; return false }
	Record{}.Status(probe)
	Record{StartedAt: 1, FinishedAt: 2}.Status(probe)
	if calls != 0 {
		t.Fatalf("liveness consulted %d times for non-running records", calls)
	}
}

func TestValidate(t *testing.T) {
	r, _ := New(KindPomodoro, 25)
	if err := r.Validate(); err == nil {
		t.Fatalf("expected error without owner")
	}
	r.Owner = 42
	if err := r.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	r.FinishedAt = 10
	if err := r.Validate(); err == nil {
		t.Fatalf("expected error for terminated record")
	}
}

func TestDescribe(t *testing.T) {
	r, _ := New(KindPomodoro, 25)
	ft := func(int64) string { return "10:00:00" }
	if got := Describe(r, StatusNew, ft); got != "pomodoro (25 min)" {
		t.Fatalf("new: %q", got)
	}
	r.Owner = 42
	r.StartedAt = 1
	if got := Describe(r, StatusStale, ft); !strings.Contains(got, "pid 42 does not exist") {
		t.Fatalf("stale: %q", got)
	}
	if got := Describe(r, StatusActive, ft); !strings.HasSuffix(got, "is active since 10:00:00") {
		t.Fatalf("active: %q", got)
	}
	if strings.Contains(r.ShortID(), "-") || len(r.ShortID()) != 32 {
		t.Fatalf("short id should be 32 hex chars: %q", r.ShortID())
	}
}
