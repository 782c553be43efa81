package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeRunStarted is sent when a split run begins
	EventTypeRunStarted EventType = "run_started"
	// EventTypeEntryClassified is sent for every entry written
	EventTypeEntryClassified EventType = "entry_classified"
	// EventTypeEntrySkipped is sent for every line dropped by a parse or regex error
	EventTypeEntrySkipped EventType = "entry_skipped"
	// EventTypeRunCompleted is sent with the final run summary
	EventTypeRunCompleted EventType = "run_completed"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RunID     string      `json:"run_id,omitempty"`
}

// RunStartedEvent announces a run
type RunStartedEvent struct {
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination"`
}

// EntryClassifiedEvent reports one written entry
type EntryClassifiedEvent struct {
	Line     int    `json:"line"`
	Regex    string `json:"regex"`
	FilePath string `json:"file_path"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
}

// EntrySkippedEvent reports one dropped line
type EntrySkippedEvent struct {
	Line  int    `json:"line"`
	Kind  string `json:"kind"` // "parse" or "regex"
	Error string `json:"error"`
}

// RunCompletedEvent carries the run totals and rounded means
type RunCompletedEvent struct {
	Destination   string  `json:"destination"`
	Entries       int     `json:"entries"`
	TotalPositive int     `json:"total_positive"`
	TotalNegative int     `json:"total_negative"`
	ParseErrors   int     `json:"parse_errors"`
	RegexErrors   int     `json:"regex_errors"`
	MeanPositive  string  `json:"mean_positive,omitempty"`
	MeanNegative  string  `json:"mean_negative,omitempty"`
	DurationMS    float64 `json:"duration_ms"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
	// RunID limits run events to a single run when set
	RunID string `json:"run_id,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
	UserAgent   string

	mu           sync.RWMutex
	subscription *SubscriptionRequest
}

// Subscribe replaces the client's event filter
func (c *Client) Subscribe(sub *SubscriptionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscription = sub
}

// wants reports whether event passes the client's subscription
func (c *Client) wants(event Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subscription == nil {
		// No subscription filter, send all events
		return true
	}
	if c.subscription.RunID != "" && event.RunID != "" && event.RunID != c.subscription.RunID {
		return false
	}
	if len(c.subscription.Events) == 0 {
		return true
	}
	for _, eventType := range c.subscription.Events {
		if eventType == event.Type {
			return true
		}
	}
	return false
}
