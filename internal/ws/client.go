package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"linkup/internal/auth"
)

const (
	maxFrameSize  = 64 * 1024
	sendQueueSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one live connection. userID is zero for anonymous connections.
// rooms is owned by the hub's Run goroutine; the pumps never touch it.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	rooms  map[string]bool
}

// ServeWS upgrades the request and registers the connection with the hub.
// A missing token admits the connection without an identity; an invalid
// token is rejected.
func ServeWS(hub *Hub, tokens *auth.Manager, w http.ResponseWriter, r *http.Request) {
	var userID int64
	if token := r.URL.Query().Get("token"); token != "" {
		id, err := tokens.Verify(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		userID = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		userID: userID,
		rooms:  make(map[string]bool),
	}
	hub.register <- client

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Malformed frames are dropped silently.
			continue
		}
		c.hub.events <- inbound{client: c, frame: frame}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
