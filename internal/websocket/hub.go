package websocket

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HubConfig contains configuration for the WebSocket hub
type HubConfig struct {
	BroadcastRuns        bool
	BroadcastEntries     bool
	BroadcastSkips       bool
	BroadcastConnections bool
	// Empty username and password leave the endpoint open
	Username string
	Password string

	// TrustProxyHeaders reports client IPs from X-Forwarded-For / X-Real-IP
	TrustProxyHeaders bool
}

// Hub maintains the set of active clients and broadcasts events to them.
// The client set is owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	direct     chan directEvent
	done       chan struct{}

	logger *zap.Logger

	mu     sync.RWMutex
	config *HubConfig
	stats  HubStats
}

// directEvent is addressed to a single client
type directEvent struct {
	client *Client
	event  Event
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	DroppedEvents      int64     `json:"dropped_events"`
	LastConnectionTime time.Time `json:"last_connection_time"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time"`
	LastPingTime       time.Time `json:"last_ping_time"`
}

// NewHub creates a new WebSocket hub
func NewHub(config *HubConfig, logger *zap.Logger) *Hub {
	if config == nil {
		config = &HubConfig{}
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directEvent, 16),
		done:       make(chan struct{}),
		config:     config,
		logger:     logger.With(zap.String("component", "websocket")),
	}
}

// Run handles client registration and broadcasting until ctx is done,
// then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket hub")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event, nil)

		case d := <-h.direct:
			if h.clients[d.client] {
				select {
				case d.client.Send <- d.event:
				default:
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				h.removeClient(client)
			}
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

// UpdateConfig swaps the broadcast switches and credentials
func (h *Hub) UpdateConfig(config *HubConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.config = config
}

func (h *Hub) currentConfig() *HubConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true

	h.mu.Lock()
	h.stats.TotalConnections++
	h.stats.ActiveConnections = int64(len(h.clients))
	h.stats.LastConnectionTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active))

	if h.currentConfig().BroadcastConnections {
		h.broadcastEvent(Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data: ConnectionEvent{
				Action:    "connected",
				ClientID:  client.ID,
				ClientIP:  client.IP,
				UserAgent: client.UserAgent,
			},
		}, client)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.removeClient(client)

	h.logger.Info("Client disconnected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int("active_connections", len(h.clients)))

	if h.currentConfig().BroadcastConnections {
		h.broadcastEvent(Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data: ConnectionEvent{
				Action:    "disconnected",
				ClientID:  client.ID,
				ClientIP:  client.IP,
				UserAgent: client.UserAgent,
			},
		}, nil)
	}
}

func (h *Hub) removeClient(client *Client) {
	delete(h.clients, client)
	close(client.Send)

	h.mu.Lock()
	h.stats.ActiveConnections = int64(len(h.clients))
	h.mu.Unlock()
}

// broadcastEvent delivers event to every subscribed client except skip.
// Clients whose send buffer is full are disconnected.
func (h *Hub) broadcastEvent(event Event, skip *Client) {
	var sent int64
	for client := range h.clients {
		if client == skip || !client.wants(event) {
			continue
		}
		select {
		case client.Send <- event:
			sent++
		default:
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("client_id", client.ID))
			h.removeClient(client)
		}
	}

	h.mu.Lock()
	h.stats.TotalBroadcasts++
	h.stats.TotalMessages += sent
	h.stats.LastBroadcastTime = time.Now()
	h.mu.Unlock()
}

// BroadcastEvent queues an event for all connected clients if its type is
// enabled. It never blocks; events are dropped when the queue is full.
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- event:
	default:
		h.mu.Lock()
		h.stats.DroppedEvents++
		h.mu.Unlock()
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("event_type", string(event.Type)))
	}
}

// shouldBroadcastEvent checks if an event type should be broadcast based on configuration
func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	config := h.currentConfig()

	switch eventType {
	case EventTypeRunStarted, EventTypeRunCompleted:
		return config.BroadcastRuns
	case EventTypeEntryClassified:
		return config.BroadcastEntries
	case EventTypeEntrySkipped:
		return config.BroadcastSkips
	case EventTypeConnection:
		return config.BroadcastConnections
	default:
		return false
	}
}

// HandleWebSocket upgrades the request and registers the client
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="regex-splitter"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Conn:        conn,
		Send:        make(chan Event, 256),
		ConnectedAt: time.Now(),
		IP:          getClientIP(r, h.currentConfig().TrustProxyHeaders),
		UserAgent:   r.UserAgent(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

// authorized checks HTTP Basic credentials when any are configured
func (h *Hub) authorized(r *http.Request) bool {
	config := h.currentConfig()
	if config.Username == "" && config.Password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(config.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(config.Password)) == 1
	return userOK && passOK
}

func (h *Hub) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Error("Failed to write WebSocket message",
					zap.String("client_id", client.ID),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleClientRead(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		h.notePing()
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error",
					zap.String("client_id", client.ID),
					zap.Error(err))
			}
			return
		}
		h.handleClientMessage(client, msg)
	}
}

// handleClientMessage handles messages received from clients
func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		data, err := json.Marshal(msg.Data)
		if err != nil {
			return
		}
		var subscription SubscriptionRequest
		if err := json.Unmarshal(data, &subscription); err != nil {
			h.logger.Debug("Ignoring malformed subscription",
				zap.String("client_id", client.ID),
				zap.Error(err))
			return
		}
		client.Subscribe(&subscription)
		h.logger.Info("Client subscription updated",
			zap.String("client_id", client.ID),
			zap.Any("subscription", subscription))
	case "ping":
		h.notePing()
		h.reply(client, Event{
			Type:      EventTypePong,
			Timestamp: time.Now(),
			Data:      map[string]string{"message": "pong"},
		})
	}
}

// reply queues event for one client, bypassing the broadcast switches.
// Send is only written by the Run goroutine, which owns closing it.
func (h *Hub) reply(client *Client, event Event) {
	select {
	case h.direct <- directEvent{client: client, event: event}:
	case <-h.done:
	}
}

// notePing records client liveness from a pong frame or a ping message
func (h *Hub) notePing() {
	h.mu.Lock()
	h.stats.LastPingTime = time.Now()
	h.mu.Unlock()
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}
	return r.RemoteAddr
}
