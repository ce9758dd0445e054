// Package history exports session lifecycle events to external systems.
// The sessions table remains the source of truth; sinks only receive copies.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loykin/gomato/internal/session"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart  EventType = "start"
	EventCancel EventType = "cancel"
	EventFinish EventType = "finish"
)

// Event represents a lifecycle event to be exported to external systems.
type Event struct {
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Record     session.Record `json:"record"`
}

// NewEvent builds the event matching the record's lifecycle position: a
// terminated record yields cancel or finish, anything else a start.
func NewEvent(r session.Record, at time.Time) Event {
	t := EventStart
	switch {
	case r.CancelledAt != 0:
		t = EventCancel
	case r.FinishedAt != 0:
		t = EventFinish
	}
	return Event{Type: t, OccurredAt: at.UTC(), Record: r}
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Send(ctx context.Context, e Event) error {
	var errs []error
	for i, s := range m {
		if s == nil {
			continue
		}
		if err := s.Send(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("sink %d (%T): %w", i, s, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
