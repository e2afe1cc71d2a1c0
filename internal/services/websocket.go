package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 64
)

// Client is one WebSocket connection of an authenticated user.
type Client struct {
	Email string
	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
}

// Hub tracks live connections by user email and pushes parcel events to the
// sender and the assigned rider.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	log        logrus.FieldLogger
}

// WebSocketMessage is the envelope of every pushed frame.
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(l logrus.FieldLogger, allowedOrigins []string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        l,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run serves registrations until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.Email] == nil {
				h.clients[client.Email] = make(map[*Client]struct{})
			}
			h.clients[client.Email][client] = struct{}{}
			h.mutex.Unlock()
			h.log.WithField("email", client.Email).Debug("websocket client connected")

		case client := <-h.unregister:
			h.remove(client)
			h.log.WithField("email", client.Email).Debug("websocket client disconnected")

		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for email, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, email)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	set, ok := h.clients[client.Email]
	if !ok {
		return
	}
	if _, ok := set[client]; ok {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, client.Email)
	}
}

// SendToUser queues message on every connection of email. Connections with
// a full buffer miss the message.
func (h *Hub) SendToUser(email string, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients[email] {
		select {
		case client.send <- message:
		default:
			h.log.WithField("email", email).Warn("websocket send buffer full")
		}
	}
}

// ConnectedClients returns the number of open connections.
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Publish implements EventSink.
func (h *Hub) Publish(_ context.Context, ev models.ParcelEvent) error {
	data, err := json.Marshal(WebSocketMessage{Type: ev.Type, Data: ev})
	if err != nil {
		return err
	}
	h.SendToUser(ev.SenderEmail, data)
	if ev.RiderEmail != "" && ev.RiderEmail != ev.SenderEmail {
		h.SendToUser(ev.RiderEmail, data)
	}
	return nil
}

// ServeWS upgrades the request and registers the connection under email.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, email string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		Email: email,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		hub:   h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only watches for the peer going away; the feed is push only.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Debug("websocket read error")
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
				c.hub.log.WithError(err).Debug("websocket write error")
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
