package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
)

var _ dispatcher.Hook = (*Hub)(nil)

// progressMessage is the frame pushed to WebSocket clients.
type progressMessage struct {
	Type string         `json:"type"`
	Data model.Progress `json:"data"`
}

// Hub pushes every progress snapshot to connected WebSocket clients.
// New clients receive the current snapshot right after the handshake.
type Hub struct {
	snapshot     func() model.Progress
	logger       *slog.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn net.Conn
	mu   sync.Mutex
}

// NewHub creates a hub. snapshot supplies the progress sent on connect.
func NewHub(snapshot func() model.Progress, logger *slog.Logger) *Hub {
	if snapshot == nil {
		snapshot = model.IdleProgress
	}
	return &Hub{
		snapshot:     snapshot,
		logger:       orDefault(logger),
		writeTimeout: duration.WebSocketWrite,
		clients:      make(map[*wsClient]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection. The
// attach snapshot is written under the client's lock before any broadcast
// can reach it, so it is always the first frame and never newer than the
// frames that follow.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &wsClient{conn: conn}
	c.mu.Lock()
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	err = h.write(c, h.snapshot())
	c.mu.Unlock()
	if err != nil {
		h.drop(c)
		return
	}
	h.logger.Info("websocket client connected", slog.String("remote", r.RemoteAddr))
	go h.readLoop(c)
}

// readLoop discards client frames and unregisters the client on close.
func (h *Hub) readLoop(c *wsClient) {
	defer h.drop(c)
	for {
		if _, _, err := wsutil.ReadClientData(c.conn); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
		h.logger.Info("websocket client disconnected")
	}
}

func (h *Hub) send(c *wsClient, p model.Progress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return h.write(c, p)
}

// write sends one progress frame; the caller holds c.mu.
func (h *Hub) write(c *wsClient, p model.Progress) error {
	data, err := jsonutil.Marshal(progressMessage{Type: "progress", Data: p})
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return wsutil.WriteServerMessage(c.conn, ws.OpText, data)
}

// Broadcast sends p to every client. A client that fails to receive within
// the write timeout is disconnected; there is no per-client queue.
func (h *Hub) Broadcast(p model.Progress) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := h.send(c, p); err != nil {
			h.logger.Debug("websocket send failed", slog.String("error", err.Error()))
			h.drop(c)
		}
	}
}

// OnEvent broadcasts progress snapshots.
func (h *Hub) OnEvent(_ context.Context, event events.Event) error {
	if e, ok := event.(*events.ProgressEvent); ok {
		h.Broadcast(e.Progress)
	}
	return nil
}

// EventTypes subscribes to progress events only.
func (h *Hub) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeProgress}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.mu.Lock()
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusGoingAway, "server shutdown"))
		c.mu.Unlock()
		_ = c.conn.Close()
	}
	return nil
}
