package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"salesdesk/internal/auth"
	"salesdesk/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Event is the envelope pushed to subscribers.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client is one authenticated feed connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	actor model.Actor
}

// delivery is an encoded event and the user whose record it concerns.
type delivery struct {
	owner uuid.UUID
	msg   []byte
}

// Hub fans events out to connected clients. Admins receive every event;
// journalists only receive events about their own sales and payments.
// The client set is owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client
	upgrader   websocket.Upgrader
}

// NewHub builds a hub accepting browser connections from allowedOrigins.
// An empty list or "*" accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Run dispatches registrations and events until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			log.Printf("WebSocket client connected: %s (%s)", client.actor.Email, client.actor.Role)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("WebSocket client disconnected: %s", client.actor.Email)
			}
		case d := <-h.broadcast:
			for client := range h.clients {
				if !client.actor.CanActOn(d.owner) {
					continue
				}
				select {
				case client.send <- d.msg:
				default:
					// slow consumer
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Publish queues an event about a record owned by owner. uuid.Nil limits the
// event to admins. It never blocks; events are dropped when the queue is full.
func (h *Hub) Publish(eventType string, owner uuid.UUID, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Printf("websocket: failed to encode %s event: %v", eventType, err)
		return
	}
	select {
	case h.broadcast <- delivery{owner: owner, msg: msg}:
	default:
		log.Printf("websocket: broadcast queue full, dropping %s event", eventType)
	}
}

// writePump sends queued events, one per frame, and pings the peer.
func (c *Client) writePump() {
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

// readPump discards client frames; it exists to process pongs and notice closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
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
				log.Printf("websocket read error for %s: %v", c.actor.Email, err)
			}
			return
		}
	}
}

// ServeWs authenticates the ?token= query parameter, falling back to the
// auth cookie, and upgrades the connection.
func ServeWs(hub *Hub, c *gin.Context, issuer *auth.TokenIssuer) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString, _ = c.Cookie(auth.CookieName)
	}
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	actor, err := issuer.Parse(tokenString)
	if err != nil {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, sendBuffer), actor: actor}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
