// Package ws pushes server events to browsers over WebSocket
// (gorilla/websocket). Connections are grouped by user so an order update
// reaches every tab its owner has open:
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//	router.Get("/ws/orders", "ws.orders", func(w http.ResponseWriter, r *http.Request) {
//	    ws.Upgrade(w, r, hub, userID)
//	})
//	hub.SendTo(userID, payload)
package ws

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/feastly/feastly/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the allow-all origin check.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

type Client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// readPump only services control frames; clients do not send data.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type directMessage struct {
	userID string
	data   []byte
}

// Hub owns every connection. All state is confined to the Run goroutine.
type Hub struct {
	users      map[string]map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan directMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every connection.
// A hub can be run only once.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, set := range h.users {
				for c := range set {
					close(c.send)
				}
			}
			h.users = map[string]map[*Client]bool{}
			h.count.Store(0)
			return

		case c := <-h.register:
			if h.users[c.userID] == nil {
				h.users[c.userID] = map[*Client]bool{}
			}
			h.users[c.userID][c] = true
			h.count.Add(1)
			logger.Debug("ws: client connected", "user_id", c.userID, "total", h.count.Load())

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.direct:
			for c := range h.users[msg.userID] {
				h.deliver(c, msg.data)
			}

		case msg := <-h.broadcast:
			for _, set := range h.users {
				for c := range set {
					h.deliver(c, msg)
				}
			}
		}
	}
}

// deliver drops a client whose buffer is full rather than block the hub.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	set, ok := h.users[c.userID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
	close(c.send)
	h.count.Add(-1)
}

// SendTo queues data for every connection of userID. It never blocks; when
// the hub is backed up the message is dropped.
func (h *Hub) SendTo(userID string, data []byte) {
	select {
	case h.direct <- directMessage{userID: userID, data: data}:
	default:
		logger.Warn("ws: hub busy, message dropped", "user_id", userID)
	}
}

func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		logger.Warn("ws: hub busy, broadcast dropped")
	}
}

func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Subscribe registers a connectionless client for userID and returns its
// message channel. The channel is closed when cancel is called, when the
// subscriber falls behind, or when the hub stops.
func (h *Hub) Subscribe(userID string) (<-chan []byte, func()) {
	c := &Client{hub: h, userID: userID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
		return c.send, func() {}
	}
	var once sync.Once
	return c.send, func() {
		once.Do(func() {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
		})
	}
}

// Upgrade switches the request to a WebSocket owned by userID.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	c := &Client{hub: hub, userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case hub.register <- c:
	case <-hub.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
