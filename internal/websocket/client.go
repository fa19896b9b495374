package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/eixo/internal/notify"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client represents a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	userID int64

	// groups is guarded by hub.mu.
	groups map[string]struct{}
}

// NewClient creates a Client tied to the given hub and connection. userID is
// the authenticated user, or 0 for an anonymous household display.
func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		groups: make(map[string]struct{}),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)
	if c.userID != 0 {
		c.hub.Join(c, notify.UserGroup(c.userID))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// command is a client request to change group membership.
type command struct {
	Action string `json:"action"`
	UserID int64  `json:"userId"`
}

// readPump handles group commands until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.hub.logger.Debug("ignoring malformed websocket message", "error", err)
		return
	}
	if cmd.UserID == 0 || (c.userID != 0 && cmd.UserID != c.userID) {
		c.hub.logger.Warn("rejected group change", "action", cmd.Action, "user_id", cmd.UserID, "client_user_id", c.userID)
		return
	}

	switch cmd.Action {
	case "join_user":
		c.hub.Join(c, notify.UserGroup(cmd.UserID))
	case "leave_user":
		c.hub.Leave(c, notify.UserGroup(cmd.UserID))
	default:
		c.hub.logger.Debug("unknown websocket action", "action", cmd.Action)
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel; the connection is done.
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
