package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Frame is an event received from a client.
type Frame struct {
	Type       string          `json:"type"`
	ChatID     int64           `json:"chatId,omitempty"`
	UserID     int64           `json:"userId,omitempty"`
	ReceiverID int64           `json:"receiverId,omitempty"`
	IsTyping   bool            `json:"isTyping,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
}

type inbound struct {
	client *Client
	frame  Frame
}

// Hub maintains room membership for live connections and broadcasts events
// to rooms. All state is owned by the Run goroutine; membership is never
// persisted and is rebuilt from scratch on reconnect.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Room name to members.
	rooms map[string]map[*Client]bool

	// Inbound frames from the clients.
	events chan inbound

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	logger *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		events:     make(chan inbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// ChatRoom names the broadcast room for a group chat.
func ChatRoom(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// UserRoom names a user's private room, joined automatically on connect.
func UserRoom(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// PairRoom names the direct-message room for two users. The identifier is
// order-independent: both participants compute the same room name.
func PairRoom(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			if client.userID != 0 {
				h.join(client, UserRoom(client.userID))
			}
		case client := <-h.unregister:
			h.drop(client)
		case in := <-h.events:
			h.dispatch(in.client, in.frame)
		}
	}
}

func (h *Hub) dispatch(c *Client, f Frame) {
	switch f.Type {
	case "join_chat":
		if f.ChatID == 0 {
			return
		}
		room := ChatRoom(f.ChatID)
		h.join(c, room)
		h.broadcast(room, c, outbound("user_joined", map[string]interface{}{
			"chatId": f.ChatID,
			"userId": c.userID,
		}))
	case "leave_chat":
		if f.ChatID == 0 {
			return
		}
		room := ChatRoom(f.ChatID)
		h.leave(c, room)
		h.broadcast(room, c, outbound("user_left", map[string]interface{}{
			"chatId": f.ChatID,
			"userId": c.userID,
		}))
	case "join_direct":
		if f.UserID == 0 || c.userID == 0 {
			return
		}
		h.join(c, PairRoom(c.userID, f.UserID))
	case "leave_direct":
		if f.UserID == 0 || c.userID == 0 {
			return
		}
		h.leave(c, PairRoom(c.userID, f.UserID))
	case "typing":
		if f.ReceiverID != 0 {
			if c.userID == 0 {
				return
			}
			h.broadcast(PairRoom(c.userID, f.ReceiverID), c, outbound("typing", map[string]interface{}{
				"isTyping": f.IsTyping,
				"userId":   c.userID,
			}))
		} else if f.ChatID != 0 {
			h.broadcast(ChatRoom(f.ChatID), c, outbound("typing", map[string]interface{}{
				"chatId":   f.ChatID,
				"isTyping": f.IsTyping,
				"userId":   c.userID,
			}))
		}
	case "send_message":
		// Live-delivery hint only; the durable write goes through the HTTP
		// path and the two are not ordered relative to each other.
		if f.ChatID == 0 || len(f.Message) == 0 {
			return
		}
		h.broadcast(ChatRoom(f.ChatID), nil, outbound("new_message", map[string]interface{}{
			"chatId":  f.ChatID,
			"message": f.Message,
		}))
	case "send_direct_message":
		if f.ReceiverID == 0 || len(f.Message) == 0 || c.userID == 0 {
			return
		}
		h.broadcast(PairRoom(c.userID, f.ReceiverID), nil, outbound("new_direct_message", map[string]interface{}{
			"sender":    c.userID,
			"receiver":  f.ReceiverID,
			"message":   f.Message,
			"timestamp": time.Now().UTC(),
		}))
	}
}

func (h *Hub) join(c *Client, room string) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	c.rooms[room] = true
}

func (h *Hub) leave(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// broadcast sends payload to every member of room, skipping except when it
// is non-nil. A member whose send buffer is full is dropped.
func (h *Hub) broadcast(room string, except *Client, payload []byte) {
	for client := range h.rooms[room] {
		if client == except {
			continue
		}
		select {
		case client.send <- payload:
		default:
			h.drop(client)
		}
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leave(c, room)
	}
	close(c.send)
}

func outbound(eventType string, payload map[string]interface{}) []byte {
	payload["type"] = eventType
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}
