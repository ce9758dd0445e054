package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loykin/gomato/internal/history"
	"github.com/loykin/gomato/internal/session"
)

func testRecord(t *testing.T) session.Record {
	t.Helper()
	r, err := session.New(session.KindPomodoro, 25)
	if err != nil {
		t.Fatal(err)
	}
	r.Owner = 12345
	r.StartedAt = time.Now().Add(-time.Minute).Unix()
	return r
}

func TestOpenSearchSink_Send(t *testing.T) {
	var receivedBody []byte
	var receivedURL string
	var receivedMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedURL = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		receivedBody = body

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"test","_index":"test-index","result":"created"}`))
	}))
	defer server.Close()

	sink := New(server.URL, "test-index")
	rec := testRecord(t)
	if err := sink.Send(context.Background(), history.NewEvent(rec, time.Now())); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if receivedMethod != http.MethodPost {
		t.Errorf("Expected POST method, got: %s", receivedMethod)
	}
	if receivedURL != "/test-index/_doc" {
		t.Errorf("Expected URL path /test-index/_doc, got: %s", receivedURL)
	}

	var doc map[string]any
	if err := json.Unmarshal(receivedBody, &doc); err != nil {
		t.Fatalf("Failed to parse received JSON: %v", err)
	}
	if doc["type"] != string(history.EventStart) {
		t.Errorf("Expected type %s, got: %v", history.EventStart, doc["type"])
	}
	if doc["session_id"] != rec.ID.String() {
		t.Errorf("Expected session_id %s, got: %v", rec.ID, doc["session_id"])
	}
	if doc["kind"] != "pomodoro" {
		t.Errorf("Expected kind pomodoro, got: %v", doc["kind"])
	}
	if doc["owner"] != float64(12345) {
		t.Errorf("Expected owner 12345, got: %v", doc["owner"])
	}
	if _, ok := doc["finished_at"]; ok {
		t.Errorf("unset finished_at should be omitted: %v", doc)
	}
}

func TestOpenSearchSink_SendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	sink := New(server.URL, "test-index")
	err := sink.Send(context.Background(), history.NewEvent(testRecord(t), time.Now()))
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "opensearch sink status 400") {
		t.Errorf("Expected status error message, got: %v", err)
	}
}

func TestOpenSearchSink_TrailingSlash(t *testing.T) {
	var receivedURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedURL = r.URL.String()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sink := New(server.URL+"/", "sessions")
	if err := sink.Send(context.Background(), history.NewEvent(testRecord(t), time.Now())); err != nil {
		t.Fatalf("send: %v", err)
	}
	if receivedURL != "/sessions/_doc" {
		t.Errorf("Expected URL path /sessions/_doc, got: %s", receivedURL)
	}
}
