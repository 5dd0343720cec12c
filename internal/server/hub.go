package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/jsplus/internal/logging"
	"github.com/conneroisu/jsplus/internal/validation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client represents a WebSocket client
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub tracks reload clients and fans out broadcasts to them.
type Hub struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	done         chan struct{}
	doneOnce     sync.Once

	allowedOrigins []string
	logger         logging.Logger
}

// NewHub creates a hub accepting pages served from localhost on port, the
// request's own host, and allowedOrigins.
func NewHub(logger logging.Logger, allowedOrigins []string, port int) *Hub {
	origins := append([]string{}, allowedOrigins...)
	if port > 0 {
		origins = append(origins,
			fmt.Sprintf("localhost:%d", port),
			fmt.Sprintf("127.0.0.1:%d", port),
		)
	}

	return &Hub{
		clients:        make(map[*websocket.Conn]*Client),
		broadcast:      make(chan []byte, 16),
		register:       make(chan *Client),
		unregister:     make(chan *websocket.Conn),
		done:           make(chan struct{}),
		allowedOrigins: origins,
		logger:         logger,
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Broadcast queues message for every client. It never blocks; a message is
// dropped when the queue is full.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn(context.Background(), nil, "Broadcast queue full, dropping message")
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	allowed := append([]string{r.Host}, h.allowedOrigins...)
	if err := validation.ValidateOrigin(origin, allowed); err != nil {
		h.logger.Warn(r.Context(), err, "Rejected reload connection", "origin", origin)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(allowed),
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go client.writePump()
	go client.readPump()
}

// originHosts reduces full origins to the host patterns websocket.Accept
// matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, origin)
	}
	return hosts
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "Reload client connected", "clients", count)

		case conn := <-h.unregister:
			h.remove(conn)

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			var failed []*websocket.Conn
			for conn, client := range h.clients {
				select {
				case client.send <- message:
				default:
					failed = append(failed, conn)
				}
			}
			h.clientsMutex.RUnlock()

			for _, conn := range failed {
				h.remove(conn)
			}
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMutex.Lock()
	client, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(client.send)
	}
	count := len(h.clients)
	h.clientsMutex.Unlock()

	if ok {
		h.logger.Debug(context.Background(), "Reload client disconnected", "clients", count)
	}
}

// closeAll stops the hub and closes every client.
func (h *Hub) closeAll() {
	h.doneOnce.Do(func() { close(h.done) })

	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	for conn, client := range h.clients {
		delete(h.clients, conn)
		close(client.send)
	}
}

// readPump discards client messages and unregisters on disconnect.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c.conn:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && status != -1 {
				c.hub.logger.Debug(context.Background(), "Reload client read failed", "error", err.Error())
			}
			return
		}
	}
}

// writePump pumps messages to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
