package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"driveport/internal/transport"
)

// outboundFrame is one message to a connected user. Edits reference
// the ID of an earlier frame so the client can replace it in place.
type outboundFrame struct {
	Type    string             `json:"type"` // "message" | "buttons" | "edit"
	ID      string             `json:"id"`
	Text    string             `json:"text"`
	Buttons []transport.Button `json:"buttons,omitempty"`
}

// Hub tracks connected clients by user ID and implements
// transport.Messenger on top of them. One connection per user; a new
// connection replaces the previous one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if old, ok := h.clients[c.UserID]; ok {
		close(old.Send)
	}
	h.clients[c.UserID] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.UserID]; ok && current.ID == c.ID {
		delete(h.clients, c.UserID)
	}
	h.mu.Unlock()
}

func (h *Hub) client(userID string) (*Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	if !ok {
		return nil, fmt.Errorf("user %s is not connected", userID)
	}
	return c, nil
}

func (h *Hub) deliver(userID string, frame outboundFrame) (string, error) {
	c, err := h.client(userID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return "", err
	}
	c.push(data)
	return frame.ID, nil
}

func (h *Hub) Send(_ context.Context, userID, text string) (string, error) {
	return h.deliver(userID, outboundFrame{Type: "message", ID: uuid.New().String(), Text: text})
}

func (h *Hub) SendButtons(_ context.Context, userID, text string, buttons []transport.Button) (string, error) {
	return h.deliver(userID, outboundFrame{Type: "buttons", ID: uuid.New().String(), Text: text, Buttons: buttons})
}

func (h *Hub) Edit(_ context.Context, userID, messageID, text string) error {
	_, err := h.deliver(userID, outboundFrame{Type: "edit", ID: messageID, Text: text})
	return err
}
