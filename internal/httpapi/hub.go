package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// Hub streams bus updates to websocket clients. Each client holds a
// latest-only subscription, so a slow browser only ever misses superseded
// updates.
type Hub struct {
	bus      updatebus.Bus
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id       string
	conn     *websocket.Conn
	receiver updatebus.Receiver
	done     chan struct{}
	once     sync.Once
}

// NewHub creates a hub reading from bus.
func NewHub(bus updatebus.Bus) *Hub {
	return &Hub{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local UIs are served from other origins (file://, dev servers).
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// ServeWS upgrades the request and streams updates until the peer leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("httpapi: websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   "ws-" + uuid.NewString(),
		conn: conn,
		done: make(chan struct{}),
	}

	receiver, err := h.bus.SubscribeLatest(c.id)
	if err != nil {
		slog.Warn("httpapi: websocket subscribe failed", "error", err)
		conn.Close()
		return
	}
	c.receiver = receiver

	if !h.register(c) {
		h.drop(c)
		return
	}

	go h.writePump(c)
	go h.pingPump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	slog.Info("httpapi: websocket client joined", "client_id", c.id, "clients", len(h.clients))
	return true
}

// drop tears a client down. Safe to call from every pump.
func (h *Hub) drop(c *client) {
	c.once.Do(func() {
		close(c.done)
		c.receiver.Close()
		if err := h.bus.Unsubscribe(c.id); err != nil {
			slog.Debug("httpapi: unsubscribe failed", "client_id", c.id, "error", err)
		}
		c.conn.Close()

		h.mu.Lock()
		delete(h.clients, c.id)
		n := len(h.clients)
		h.mu.Unlock()
		slog.Info("httpapi: websocket client left", "client_id", c.id, "clients", n)
	})
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("httpapi: websocket read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer h.drop(c)

	for {
		u, ok := c.receiver.Receive()
		if !ok {
			return
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(u); err != nil {
			slog.Debug("httpapi: websocket write error", "client_id", c.id, "error", err)
			return
		}
	}
}

// pingPump uses WriteControl, which may run concurrently with writePump.
func (h *Hub) pingPump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}
