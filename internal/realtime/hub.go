// Package realtime fans committed events out to live websocket clients.
// Membership is purely in-memory and connection-scoped: a client hears
// only what is published while it is connected, at most once.
package realtime

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// AdminChannel receives deleteRequestCreated events.
const AdminChannel = "role:admin"

// IdentityChannel names the per-identity channel. Subjects are
// case-normalized so mixed-case claims cannot split a channel.
func IdentityChannel(subject string) string {
	return "identity:" + strings.ToLower(subject)
}

// Event is the JSON-shaped payload written to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is one live websocket connection.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte

	channels []string
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}
}

// Hub maps channel names to the set of currently-registered clients.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*Client]bool)}
}

// Join registers the client under every given channel. Channel
// membership is re-derived from claims on each connect, never persisted.
// Repeat calls accumulate, so Leave always unwinds every registration.
func (h *Hub) Join(c *Client, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range channels {
		name = strings.ToLower(name)
		members, ok := h.channels[name]
		if !ok {
			members = make(map[*Client]bool)
			h.channels[name] = members
		}
		members[c] = true
	}
	c.channels = append(c.channels, channels...)
}

// Leave removes the client from every channel it joined and closes its
// send queue.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := false
	for _, name := range c.channels {
		name = strings.ToLower(name)
		members, ok := h.channels[name]
		if !ok {
			continue
		}
		if members[c] {
			delete(members, c)
			removed = true
		}
		if len(members) == 0 {
			delete(h.channels, name)
		}
	}
	c.channels = nil
	if removed {
		close(c.Send)
	}
}

// Publish delivers the event to every client currently registered on
// the channel and reports how many were reached. A channel with no
// members is not an error; slow clients with a full send queue are
// skipped rather than blocked on.
func (h *Hub) Publish(channel string, event Event) int {
	data, err := json.Marshal(event)
	if err != nil {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.channels[strings.ToLower(channel)] {
		select {
		case client.Send <- data:
			delivered++
		default:
			// Buffer full, skip
		}
	}
	return delivered
}

// ConnectionCount reports the number of distinct live clients, for the
// websocket gauge.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]bool)
	for _, members := range h.channels {
		for client := range members {
			seen[client] = true
		}
	}
	return len(seen)
}
