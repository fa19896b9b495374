package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/eixo/internal/metrics"
	"github.com/dukerupert/eixo/internal/notify"
)

// Hub maintains the set of active WebSocket clients and the groups they
// belong to. Every client is a member of the household group.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	groups    map[string]map[*Client]struct{}
	household string
	logger    *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(household string, logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		groups:    make(map[string]map[*Client]struct{}),
		household: household,
		logger:    logger,
	}
}

// Register adds a client to the hub and to the household group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		return
	}
	h.clients[c] = struct{}{}
	h.joinLocked(c, h.household)
	metrics.WebSocketClients.Inc()
}

// Unregister removes a client from the hub and every group, then closes its
// send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for group := range c.groups {
		h.leaveLocked(c, group)
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WebSocketClients.Dec()
}

// Join adds a registered client to group.
func (h *Hub) Join(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.joinLocked(c, group)
}

// Leave removes a client from group. The household group cannot be left.
func (h *Hub) Leave(c *Client, group string) {
	if group == h.household {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, group)
}

func (h *Hub) joinLocked(c *Client, group string) {
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
	c.groups[group] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, group string) {
	delete(c.groups, group)
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Publish delivers ev to every client in group. It implements notify.Publisher.
func (h *Hub) Publish(ctx context.Context, group string, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	h.Deliver(group, data)
	return nil
}

// Deliver sends a pre-encoded message to every client in group and returns
// how many clients accepted it.
func (h *Hub) Deliver(group string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.groups[group] {
		select {
		case c.send <- data:
			sent++
		default:
			// Client buffer full; drop the message rather than block.
			h.logger.Debug("dropping message for slow client", "group", group)
		}
	}
	return sent
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize returns the number of clients in group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
