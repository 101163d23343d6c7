package event

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haffnet/portal/internal/security"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewClient(server.Client(), logger, security.NewContentSanitizer(), server.URL, "test-api-key")
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestList_SendsBearerKeyAndDecorates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/events" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"events": [
				{"id":"ev-1","name":"CME Seminar","description":"<p>Info</p><script>x</script>","capacity":100,"registrations":85}
			],
			"total": 1
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if result.Total != 1 || len(result.Events) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	ev := result.Events[0]
	if strings.Contains(ev.Description, "<script") {
		t.Errorf("description not sanitized: %q", ev.Description)
	}
	if ev.SpotsRemaining == nil || *ev.SpotsRemaining != 15 {
		t.Errorf("SpotsRemaining = %v, want 15", ev.SpotsRemaining)
	}
	if ev.WarningText != "Nur noch 15 Plätze!" {
		t.Errorf("WarningText = %q", ev.WarningText)
	}
}

func TestList_UpcomingFilterUsesClock(t *testing.T) {
	var gotStartDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStartDate = r.URL.Query().Get("startDate")
		w.Write([]byte(`{"events":[],"total":0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	client.now = func() int64 { return 1700000000000 }

	if _, err := client.List(context.Background(), ListParams{Upcoming: true}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotStartDate != "1700000000000" {
		t.Errorf("startDate = %q, want 1700000000000", gotStartDate)
	}
}

func TestGet_NotFoundReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	event, err := client.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if event != nil {
		t.Errorf("event = %+v, want nil", event)
	}
}

func TestGet_ServerErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.Get(context.Background(), "ev-1"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestGet_UnlimitedEventDecoration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ev-2","name":"Online-Fortbildung","registrations":7}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	event, err := client.Get(context.Background(), "ev-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if event.CapacityText != "7 Teilnehmer" {
		t.Errorf("CapacityText = %q", event.CapacityText)
	}
	if event.SpotsText != "Unbegrenzte Plätze" {
		t.Errorf("SpotsText = %q", event.SpotsText)
	}
}
