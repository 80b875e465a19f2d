// Package ws fans notification events out to connected websocket clients, keyed by recipient.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 64
)

type Observer interface {
	WSConnected()
	WSDisconnected()
}

type Message struct {
	RecipientID string `json:"-"`
	Event       string `json:"event"`
	Payload     any    `json:"payload"`
}

type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	upgrader   websocket.Upgrader
	observer   Observer
	done       chan struct{}
}

type Client struct {
	RecipientID string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
}

func NewHub(observer Observer) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Connections are authenticated by access token, not cookies.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		observer: observer,
		done:     make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			if h.observer != nil {
				h.observer.WSConnected()
			}
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Warn("ws message marshal failed", "event", msg.Event, "err", err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if c.RecipientID != msg.RecipientID {
					continue
				}
				select {
				case c.send <- data:
				default:
					slog.Warn("ws client send buffer full, dropping", "recipientId", c.RecipientID)
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	if h.observer != nil {
		h.observer.WSDisconnected()
	}
}

// Publish queues msg without blocking; it reports false when the hub is saturated.
func (h *Hub) Publish(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		slog.Warn("ws broadcast queue full", "event", msg.Event, "recipientId", msg.RecipientID)
		return false
	}
}

func (h *Hub) Connected(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.RecipientID == recipientID {
			n++
		}
	}
	return n
}

// Serve upgrades the request and blocks until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, recipientID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{RecipientID: recipientID, hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		return conn.Close()
	}
	go c.writePump()
	c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read error", "recipientId", c.RecipientID, "err", err)
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
