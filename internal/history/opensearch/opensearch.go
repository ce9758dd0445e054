package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/gomato/internal/history"
)

// Sink sends events to OpenSearch via HTTP.
// It constructs URL as: baseURL + "/" + index + "/_doc" and POSTs JSON body.
type Sink struct {
	client  *http.Client
	baseURL string
	index   string
}

func New(baseURL, index string) *Sink {
	c := &http.Client{Timeout: 5 * time.Second}
	return &Sink{client: c, baseURL: strings.TrimRight(baseURL, "/"), index: index}
}

// document flattens an event so that session fields are top-level keys in the index.
type document struct {
	Type        history.EventType `json:"type"`
	OccurredAt  time.Time         `json:"occurred_at"`
	SessionID   string            `json:"session_id"`
	Kind        string            `json:"kind"`
	Duration    int               `json:"duration"`
	Owner       int               `json:"owner,omitempty"`
	StartedAt   int64             `json:"started_at"`
	FinishedAt  int64             `json:"finished_at,omitempty"`
	CancelledAt int64             `json:"cancelled_at,omitempty"`
}

func toDocument(e history.Event) document {
	r := e.Record
	return document{
		Type:        e.Type,
		OccurredAt:  e.OccurredAt.UTC(),
		SessionID:   r.ID.String(),
		Kind:        r.Kind.String(),
		Duration:    r.Duration,
		Owner:       r.Owner,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		CancelledAt: r.CancelledAt,
	}
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	u := fmt.Sprintf("%s/%s/_doc", s.baseURL, s.index)
	b, err := json.Marshal(toDocument(e))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("opensearch sink status %d", resp.StatusCode)
	}
	return nil
}
