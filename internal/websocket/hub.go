package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

const (
	EntityList  = "shopping_list"
	EntityItem  = "shopping_list_item"
	EntityPrice = "price"
)

// Message tells a user's other sessions that something they can see changed.
// ListID names the list an item change belongs to.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	ListID int64          `json:"list_id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id, listID int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		ListID: listID,
		Extra:  extra,
	}
}

// Hub tracks connected clients per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", "user_id", c.userID)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish sends msg to every client of userID.
func (h *Hub) Publish(userID int64, msg Message) {
	h.deliver(msg, func(c *Client) bool { return c.userID == userID })
}

// PublishAll sends msg to every client, for changes visible to everyone such
// as catalog prices.
func (h *Hub) PublishAll(msg Message) {
	h.deliver(msg, func(*Client) bool { return true })
}

func (h *Hub) deliver(msg Message, match func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// slow client; drop rather than block publishers
			h.logger.Warn("dropped message", "user_id", c.userID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
