package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"candor/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	maxConnsPerCompany = 200
	sendBuffer         = 64
)

// ErrFeedFull is returned when a company already has the maximum number of feed connections.
var ErrFeedFull = errors.New("moderation feed connection limit reached")

// wsConn is the subset of *websocket.Conn the hub uses.
type wsConn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// FeedClient is one moderator connection to the live report feed.
type FeedClient struct {
	hub       *ModerationHub
	conn      wsConn
	companyID string
	userID    string
	send      chan []byte
	closeOnce sync.Once
}

// ModerationHub fans company moderation events out to connected moderators.
type ModerationHub struct {
	mu    sync.RWMutex
	conns map[string]map[*FeedClient]struct{}
}

// NewModerationHub creates an empty hub.
func NewModerationHub() *ModerationHub {
	return &ModerationHub{conns: make(map[string]map[*FeedClient]struct{})}
}

// Register adds a moderator connection to its company feed.
func (h *ModerationHub) Register(companyID, userID string, conn wsConn) (*FeedClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[companyID]
	if !ok {
		m = make(map[*FeedClient]struct{})
		h.conns[companyID] = m
	}
	if len(m) >= maxConnsPerCompany {
		return nil, ErrFeedFull
	}
	client := &FeedClient{
		hub:       h,
		conn:      conn,
		companyID: companyID,
		userID:    userID,
		send:      make(chan []byte, sendBuffer),
	}
	m[client] = struct{}{}
	observability.ModerationFeedConnections.Inc()
	return client, nil
}

// Unregister removes a client and closes its send queue.
func (h *ModerationHub) Unregister(client *FeedClient) {
	h.mu.Lock()
	if m, ok := h.conns[client.companyID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			observability.ModerationFeedConnections.Dec()
			client.closeOnce.Do(func() { close(client.send) })
		}
		if len(m) == 0 {
			delete(h.conns, client.companyID)
		}
	}
	h.mu.Unlock()
}

// Broadcast queues payload for every moderator of companyID. Slow clients drop messages.
func (h *ModerationHub) Broadcast(companyID, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(payload)
	for c := range h.conns[companyID] {
		select {
		case c.send <- data:
		default:
			slog.Warn("moderation feed client lagging, dropping event",
				slog.String("company_id", companyID), slog.String("user_id", c.userID))
		}
	}
}

// ConnectionCount returns the number of open feed connections for a company.
func (h *ModerationHub) ConnectionCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[companyID])
}

// StartWiring forwards every published moderation event to local connections.
func (h *ModerationHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartModerationSubscriber(ctx, h.Broadcast)
}

// Shutdown closes every connection.
func (h *ModerationHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for companyID, clients := range h.conns {
		for c := range clients {
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"))
			_ = c.conn.Close()
			observability.ModerationFeedConnections.Dec()
			c.closeOnce.Do(func() { close(c.send) })
		}
		delete(h.conns, companyID)
	}
	return nil
}

// Serve runs the client's pumps until the connection closes. The feed is
// read-only; inbound frames are drained to keep ping/pong working.
func (c *FeedClient) Serve() {
	go c.writePump()
	c.readPump()
}

func (c *FeedClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("moderation feed read error", slog.String("user_id", c.userID), slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (c *FeedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
