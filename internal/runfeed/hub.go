// Package runfeed streams replay run summaries to WebSocket clients.
// The hub fans one JSON message per completed run out to every
// connected client; the feed is one-way and inbound frames are
// discarded.
package runfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"solana-ladder-lab/internal/observability"
)

// maxMessageSize caps inbound frames. Clients have nothing to say, so
// anything larger is a misbehaving peer.
const maxMessageSize = 4096

// Message types sent on the feed.
const (
	MessageTypeStatus       = "feed_status"
	MessageTypeRunCompleted = "run_completed"
)

// Config configures hub timing and buffering.
type Config struct {
	// WriteWait is the maximum time to wait for a write to complete.
	WriteWait time.Duration
	// PongWait is the maximum time to wait for a pong from the client.
	PongWait time.Duration
	// PingPeriod sends pings at this interval. Must be less than PongWait.
	PingPeriod time.Duration
	// SendBufferSize is the channel buffer for outgoing messages per client.
	SendBufferSize int
	// BroadcastBufferSize is the hub's pending-broadcast buffer.
	BroadcastBufferSize int
}

// DefaultConfig returns default hub configuration.
func DefaultConfig() Config {
	return Config{
		WriteWait:           10 * time.Second,
		PongWait:            60 * time.Second,
		PingPeriod:          54 * time.Second,
		SendBufferSize:      16,
		BroadcastBufferSize: 64,
	}
}

// RunUpdate is the summary broadcast after each replay run.
type RunUpdate struct {
	Type           string `json:"type"`
	RunID          string `json:"run_id"`
	Status         string `json:"status"`
	GeneratedAtMs  int64  `json:"generated_at_ms,omitempty"`
	TradesInWindow int    `json:"trades_in_window"`
	TradesReported int    `json:"trades_reported"`
	SimulationsRun int    `json:"simulations_run"`
	TradesArchived int    `json:"trades_archived"`
	DurationMs     int64  `json:"duration_ms"`
	Error          string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The feed carries no secrets and accepts no commands.
		return true
	},
}

// client is a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages connected WebSocket clients and broadcasts run
// summaries to all of them.
type Hub struct {
	cfg    Config
	logger *log.Logger

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	mu        sync.RWMutex
	startedAt time.Time
}

// NewHub creates a new run feed hub. A nil config selects
// DefaultConfig; a nil logger selects a stdout logger.
func NewHub(config *Config, logger *log.Logger) *Hub {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[runfeed] ", log.LstdFlags)
	}

	return &Hub{
		cfg:        cfg,
		logger:     logger,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, cfg.BroadcastBufferSize),
		startedAt:  time.Now(),
	}
}

// Run starts the hub's event loop. It should be called in a goroutine
// before the /ws endpoint is exposed; the loop exits when the context
// is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			c.sendStatus()
			observability.RecordFeedClientConnected()
			h.logger.Printf("client connected (%d total)", h.ClientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			if ok {
				observability.RecordFeedClientDisconnected()
				h.logger.Printf("client disconnected (%d total)", h.ClientCount())
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Client's send buffer is full; drop the message.
					h.logger.Printf("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues v, JSON-encoded, for delivery to every connected
// client. It never blocks: when the hub's queue is full the message is
// dropped with an error.
func (h *Hub) Broadcast(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal feed message: %w", err)
	}
	select {
	case h.broadcast <- data:
		return nil
	default:
		return fmt.Errorf("feed broadcast queue full")
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades an HTTP request to a WebSocket connection and
// registers the client with the hub. The hub loop must be running.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.cfg.SendBufferSize),
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

// sendStatus queues the connect-time status envelope. The hub loop
// calls it right after registration, so a client that has read the
// status frame is guaranteed to be counted.
func (c *client) sendStatus() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]interface{}{
		"type": MessageTypeStatus,
		"payload": map[string]interface{}{
			"connected":      true,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// readPump drains the WebSocket connection. The feed accepts no
// commands, so frames are discarded; the pump exists to run the pong
// handler and detect the peer going away.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
// as text frames, with periodic ping frames for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			observability.RecordFeedMessageSent()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
