package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/flemzord/obgram/internal/metrics"
	"github.com/flemzord/obgram/pkg/onebot"
)

const writeTimeout = 5 * time.Second

// Hub streams published events to WebSocket clients. Each client gets
// every event published after it connected; there is no replay.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func NewHub(bus *Bus, logger *slog.Logger) *Hub {
	h := &Hub{
		logger: logger,
		conns:  make(map[*client]struct{}),
	}
	bus.Subscribe(h.broadcast)
	return h
}

// ServeHTTP upgrades the request to a WebSocket and holds the connection
// open until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	c := &client{conn: conn}
	h.add(c)
	defer h.remove(c)

	h.logger.Debug("event stream client connected", "remote", r.RemoteAddr)

	// Drain the read side so pings and close frames are processed. Clients
	// are not expected to send anything; any payload is discarded.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	metrics.EventStreamClients.Inc()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()
	if ok {
		metrics.EventStreamClients.Dec()
	}
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// broadcast marshals the event once and writes it to every connection.
// Write failures drop the client; the read loop in ServeHTTP observes the
// closed connection and cleans up.
func (h *Hub) broadcast(ev *onebot.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event for stream failed", "event_id", ev.ID, "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*client, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.mu.Lock()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		c.mu.Unlock()
		if err != nil {
			h.logger.Warn("event stream write failed, dropping client", "error", err)
			_ = c.conn.Close(websocket.StatusPolicyViolation, "write failed")
		}
	}
}

// Close disconnects all clients. Used during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*client, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
