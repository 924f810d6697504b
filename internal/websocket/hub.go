package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/webinarhub/internal/metrics"
)

const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// Event notifies clients that a webinar's registrations changed. It never
// carries the user who registered.
type Event struct {
	Type            string `json:"type"`
	WebinarID       string `json:"webinarId"`
	RegisteredCount int    `json:"registeredCount"`
}

// NewRegistrationEvent builds a registration_<action> event.
func NewRegistrationEvent(action, webinarID string, registeredCount int) Event {
	return Event{
		Type:            "registration_" + action,
		WebinarID:       webinarID,
		RegisteredCount: registeredCount,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket_hub"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
}

// Broadcast sends ev to every client watching all webinars or ev's webinar.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.webinarID != "" && c.webinarID != ev.WebinarID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow client; drop rather than block the broadcaster.
			h.logger.Debug("dropped event for slow client", "type", ev.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
