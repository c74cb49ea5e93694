package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the gateway
	},
}

// WSMessage is the envelope of every message on the feed
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsClient is one feed subscriber. Writes to conn are serialized by mu.
type wsClient struct {
	conn     *websocket.Conn
	mu       sync.Mutex
	identity models.Identity
	limiter  *rate.Limiter // nil = no throttling
}

// WebSocketHandler pushes recorded tracking events to connected clients.
// A client only receives events it could read from the history endpoint.
type WebSocketHandler struct {
	logger           arbor.ILogger
	authorizer       interfaces.Authorizer
	clients          map[*websocket.Conn]*wsClient
	mu               sync.RWMutex
	throttleInterval time.Duration
	serverInstanceID string // Clients use it to detect a server restart
}

// NewWebSocketHandler creates the feed and subscribes it to tracking events
func NewWebSocketHandler(eventService interfaces.EventService, authorizer interfaces.Authorizer, throttleInterval time.Duration, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		authorizer:       authorizer,
		clients:          make(map[*websocket.Conn]*wsClient),
		throttleInterval: throttleInterval,
		serverInstanceID: uuid.New().String(),
	}

	if eventService != nil {
		if err := eventService.Subscribe(interfaces.EventTrackingRecorded, h.handleTrackingRecorded); err != nil {
			logger.Warn().Err(err).Msg("Failed to subscribe tracking feed to tracking events")
		}
	}

	logger.Debug().
		Str("server_instance_id", h.serverInstanceID).
		Dur("throttle_interval", throttleInterval).
		Msg("WebSocket tracking feed initialized")

	return h
}

// HandleWebSocket handles GET /ws/tracking
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := RequireIdentity(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{conn: conn, identity: identity}
	if h.throttleInterval > 0 {
		client.limiter = rate.NewLimiter(rate.Every(h.throttleInterval), 1)
	}

	h.mu.Lock()
	h.clients[conn] = client
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("user_id", identity.UserID).
		Int("clients", clientCount).
		Msg("WebSocket client connected")

	h.send(client, WSMessage{
		Type: "hello",
		Payload: map[string]string{
			"serverInstanceId": h.serverInstanceID,
			"userId":           identity.UserID,
		},
	})

	done := make(chan struct{})
	go h.keepAlive(client, done)

	defer func() {
		close(done)
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	// The server's ReadTimeout deadline still applies after the upgrade
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Read until the client goes away; inbound messages are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// keepAlive pings the client so idle feeds outlive the read deadline
func (h *WebSocketHandler) keepAlive(client *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			client.mu.Lock()
			err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			client.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHandler) handleTrackingRecorded(ctx context.Context, event interfaces.Event) error {
	trackingEvent, ok := event.Payload.(*models.TrackingEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	h.BroadcastTrackingEvent(trackingEvent)
	return nil
}

// BroadcastTrackingEvent sends the event to every client allowed to see it.
// Clients over their rate limit miss the message rather than delay others.
func (h *WebSocketHandler) BroadcastTrackingEvent(event *models.TrackingEvent) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	msg := WSMessage{Type: "tracking_event", Payload: event}
	for _, client := range clients {
		if h.authorizer != nil && h.authorizer.CanViewTracking(client.identity, event.SubjectID) != nil {
			continue
		}
		if client.limiter != nil && !client.limiter.Allow() {
			h.logger.Debug().
				Str("user_id", client.identity.UserID).
				Str("event_id", event.ID).
				Msg("Tracking event dropped by throttle")
			continue
		}
		h.send(client, msg)
	}
}

func (h *WebSocketHandler) send(client *wsClient, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
	}
}
