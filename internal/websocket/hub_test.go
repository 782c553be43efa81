package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
	"github.com/raaihank/regex-splitter/internal/splitter"
)

func allEvents() *HubConfig {
	return &HubConfig{
		BroadcastRuns:    true,
		BroadcastEntries: true,
		BroadcastSkips:   true,
	}
}

func startHub(t *testing.T, config *HubConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(config, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// dial connects and waits for a pong so the client is registered.
func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(ClientMessage{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if event := readEvent(t, conn); event.Type != EventTypePong {
		t.Fatalf("expected pong, got %s", event.Type)
	}
	return conn
}

type wireEvent struct {
	Type  EventType       `json:"type"`
	RunID string          `json:"run_id"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event wireEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func TestRunObserverEvents(t *testing.T) {
	hub, server := startHub(t, allEvents())
	conn := dial(t, server, nil)

	obs := NewRunObserver(hub, "run-1")
	obs.RunStarted("in.jsonl", "out.json")
	obs.EntryClassified(1, &dataset.ClassifiedEntry{
		Regex:          "^a",
		PositiveInputs: []string{"abc", "axx"},
		NegativeInputs: []string{"xyz"},
		FilePath:       "f1",
	})
	obs.EntrySkipped(2, &dataset.RegexCompileError{Line: 2, Pattern: "(", Err: errors.New("missing )")})
	obs.RunCompleted(&splitter.Summary{Destination: "out.json", Entries: 1, TotalPositive: 2, TotalNegative: 1})

	started := readEvent(t, conn)
	if started.Type != EventTypeRunStarted || started.RunID != "run-1" {
		t.Errorf("unexpected first event: %+v", started)
	}

	classified := readEvent(t, conn)
	var entry EntryClassifiedEvent
	if err := json.Unmarshal(classified.Data, &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Positive != 2 || entry.Negative != 1 || entry.Line != 1 {
		t.Errorf("unexpected classified payload: %+v", entry)
	}

	skipped := readEvent(t, conn)
	var skip EntrySkippedEvent
	if err := json.Unmarshal(skipped.Data, &skip); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if skip.Kind != "regex" {
		t.Errorf("expected regex skip, got %q", skip.Kind)
	}

	completed := readEvent(t, conn)
	var done RunCompletedEvent
	if err := json.Unmarshal(completed.Data, &done); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if done.MeanPositive != "2" || done.MeanNegative != "1" {
		t.Errorf("unexpected means: %+v", done)
	}
}

func TestBroadcastSwitches(t *testing.T) {
	hub, server := startHub(t, &HubConfig{BroadcastRuns: true})
	conn := dial(t, server, nil)

	obs := NewRunObserver(hub, "run-2")
	obs.EntryClassified(1, &dataset.ClassifiedEntry{})
	obs.RunStarted("", "out.json")

	// Entry events are disabled, so the run event arrives first.
	if event := readEvent(t, conn); event.Type != EventTypeRunStarted {
		t.Errorf("expected run_started, got %s", event.Type)
	}
}

func TestSubscription(t *testing.T) {
	hub, server := startHub(t, allEvents())
	conn := dial(t, server, nil)

	sub := ClientMessage{Type: "subscribe", Data: SubscriptionRequest{Events: []EventType{EventTypeRunCompleted}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// A ping after the subscription orders it before the broadcasts below.
	conn.WriteJSON(ClientMessage{Type: "ping"})
	if event := readEvent(t, conn); event.Type != EventTypePong {
		t.Fatalf("expected pong, got %s", event.Type)
	}

	obs := NewRunObserver(hub, "run-3")
	obs.RunStarted("", "out.json")
	obs.RunCompleted(&splitter.Summary{Destination: "out.json"})

	if event := readEvent(t, conn); event.Type != EventTypeRunCompleted {
		t.Errorf("expected run_completed only, got %s", event.Type)
	}
}

func TestAuthentication(t *testing.T) {
	config := allEvents()
	config.Username = "admin"
	config.Password = "secret"
	_, server := startHub(t, config)

	t.Run("MissingCredentials", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
		if err == nil {
			t.Fatal("expected dial to fail")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", resp)
		}
	})

	t.Run("ValidCredentials", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		req.SetBasicAuth("admin", "secret")
		dial(t, server, req.Header)
	})
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	if got := getClientIP(req, true); got != "10.0.0.1" {
		t.Errorf("expected first forwarded address, got %s", got)
	}
	if got := getClientIP(req, false); got != req.RemoteAddr {
		t.Errorf("expected remote address %s without proxy trust, got %s", req.RemoteAddr, got)
	}
}

func TestHubStats(t *testing.T) {
	hub, server := startHub(t, allEvents())
	before := time.Now()
	dial(t, server, nil)

	stats := hub.GetStats()
	if stats.TotalConnections != 1 || stats.ActiveConnections != 1 {
		t.Errorf("expected one active connection, got %+v", stats)
	}
	if stats.LastPingTime.Before(before) {
		t.Errorf("expected ping time after %v, got %v", before, stats.LastPingTime)
	}
}
