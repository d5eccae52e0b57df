package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Hatles/rx-home/internal/auth"
	"github.com/Hatles/rx-home/internal/infrastructure/config"
	"github.com/Hatles/rx-home/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// wsSendBufferSize is the per-client outbound queue. A client that
// cannot keep up has messages dropped rather than blocking the hub.
const wsSendBufferSize = 256

// channelAll subscribes a client to every event type.
const channelAll = "*"

// WSMessage is the envelope for all WebSocket traffic in both
// directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WSSubscribePayload lists the event types a client wants to receive.
// The channel "*" matches every event.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// WSHub tracks connected WebSocket clients and fans events out to
// them.
type WSHub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewWSHub creates a WebSocket hub. Run() must be called before
// clients connect.
func NewWSHub(cfg config.WebSocketConfig, logger *logging.Logger) *WSHub {
	return &WSHub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every client.
func (h *WSHub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *WSHub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", c.subject, "clients", h.ClientCount())
}

// Unregister removes a client and closes its send channel exactly
// once.
func (h *WSHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every client subscribed to its type.
//
// Marshalling happens once; delivery to each client is non-blocking.
func (h *WSHub) Broadcast(eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("websocket broadcast marshal failed", "event_type", eventType, "error", err)
		return
	}

	msg := WSMessage{
		Type:      WSTypeEvent,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		if c.isSubscribed(eventType) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(msg)
	}
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin access is governed by token auth, not Origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient is a single WebSocket connection.
type WSClient struct {
	hub     *WSHub
	conn    *websocket.Conn
	logger  *logging.Logger
	subject string
	send    chan WSMessage

	mu       sync.RWMutex
	channels map[string]struct{}
}

// handleWebSocket upgrades GET /api/v1/ws to a WebSocket connection.
//
// Browsers cannot set an Authorization header on upgrade requests, so
// the access token is passed as the access_token query parameter.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	if token == "" {
		writeUnauthorized(w, "missing access_token")
		return
	}

	claims, err := auth.ParseToken(token, s.secCfg.JWT.Secret)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:      s.wsHub,
		conn:     conn,
		logger:   s.logger,
		subject:  claims.Subject,
		send:     make(chan WSMessage, wsSendBufferSize),
		channels: make(map[string]struct{}),
	}

	s.wsHub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the connection until it closes.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	// An idle connection must survive a full ping cycle before the
	// pong grace period starts counting.
	readWait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		c.handleMessage(msg)
	}
}

// writePump drains the send channel to the connection and keeps the
// connection alive with pings.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := 10 * time.Second

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.trySend(WSMessage{Type: WSTypePong, ID: msg.ID, Timestamp: time.Now().UTC()})
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func (c *WSClient) handleSubscribe(msg WSMessage) {
	var payload WSSubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || len(payload.Channels) == 0 {
		c.sendError(msg.ID, "subscribe requires a channels list")
		return
	}

	c.mu.Lock()
	for _, ch := range payload.Channels {
		c.channels[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, "subscribed")
}

func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	var payload WSSubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || len(payload.Channels) == 0 {
		c.sendError(msg.ID, "unsubscribe requires a channels list")
		return
	}

	c.mu.Lock()
	for _, ch := range payload.Channels {
		delete(c.channels, ch)
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, "unsubscribed")
}

func (c *WSClient) isSubscribed(eventType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[channelAll]; ok {
		return true
	}
	_, ok := c.channels[eventType]
	return ok
}

// trySend queues a message without blocking. Sends to a closed channel
// are absorbed by the recover.
func (c *WSClient) trySend(msg WSMessage) {
	defer func() { _ = recover() }()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("websocket send buffer full, dropping message", "subject", c.subject)
	}
}

func (c *WSClient) sendResponse(id, result string) {
	raw, _ := json.Marshal(map[string]string{"result": result})
	c.trySend(WSMessage{Type: WSTypeResponse, ID: id, Timestamp: time.Now().UTC(), Payload: raw})
}

func (c *WSClient) sendError(id, message string) {
	raw, _ := json.Marshal(map[string]string{"message": message})
	c.trySend(WSMessage{Type: WSTypeError, ID: id, Timestamp: time.Now().UTC(), Payload: raw})
}
