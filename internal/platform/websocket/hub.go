package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/phrazzld/nudge/internal/delivery"
	"github.com/phrazzld/nudge/internal/redact"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

var (
	// ErrHubClosed is returned by Send and Serve after Close.
	ErrHubClosed = errors.New("websocket hub is closed")

	// ErrSlowConsumer is returned by Send when a connection's buffer is full.
	ErrSlowConsumer = errors.New("websocket client is not keeping up")
)

// Message is the frame written to subscribers.
type Message struct {
	Topic   string           `json:"topic"`
	Payload delivery.Payload `json:"payload"`
}

type client struct {
	address string
	conn    *gorillaws.Conn
	send    chan Message
	once    sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks websocket subscribers by address and implements
// delivery.Transport.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	closed   bool
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewHub creates an empty hub. checkOrigin may be nil to use gorilla's
// same-origin default.
func NewHub(checkOrigin func(r *http.Request) bool, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With(slog.String("component", "websocket_hub")),
	}
}

var _ delivery.Transport = (*Hub)(nil)

// Send implements delivery.Transport.
func (h *Hub) Send(ctx context.Context, address, topic string, payload delivery.Payload) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	msg := Message{Topic: topic, Payload: payload}
	var errs []error
	for c := range h.clients[address] {
		select {
		case c.send <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			errs = append(errs, ErrSlowConsumer)
		}
	}
	return errors.Join(errs...)
}

// Subscribers returns the number of open connections for address.
func (h *Hub) Subscribers(address string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[address])
}

// Serve upgrades the request to a websocket and subscribes it to address.
// It returns once the connection is registered; reading and writing happen
// on their own goroutines until the peer disconnects or the hub closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, address string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	c := &client{address: address, conn: conn, send: make(chan Message, sendBuffer)}
	if err := h.register(c); err != nil {
		_ = conn.WriteControl(gorillaws.CloseMessage,
			gorillaws.FormatCloseMessage(gorillaws.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return err
	}

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Close disconnects every subscriber and rejects further sends.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			c.close()
		}
	}
	h.clients = make(map[string]map[*client]struct{})
	h.logger.Info("websocket hub closed")
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	set, ok := h.clients[c.address]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.address] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("subscriber registered",
		"address", redact.Address(c.address),
		"connections", len(set))
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.address]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.address)
	}
	c.close()
	h.logger.Debug("subscriber unregistered", "address", redact.Address(c.address))
}

// readPump discards inbound frames and keeps the read deadline fresh via
// pongs. Any read error ends the subscription.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(gorillaws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
