package ws

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestHub() *Hub {
	h := NewHub(zap.NewNop().Sugar())
	go h.Run()
	return h
}

func newTestClient(h *Hub, userID int64) *Client {
	c := &Client{
		hub:    h,
		send:   make(chan []byte, sendQueueSize),
		userID: userID,
		rooms:  make(map[string]bool),
	}
	h.register <- c
	return c
}

func (c *Client) emit(f Frame) {
	c.hub.events <- inbound{client: c, frame: f}
}

func recv(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
	return nil
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("Unexpected event: %s", data)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPairRoomSymmetric(t *testing.T) {
	if PairRoom(1, 2) != PairRoom(2, 1) {
		t.Errorf("PairRoom is not symmetric: %s vs %s", PairRoom(1, 2), PairRoom(2, 1))
	}
	if PairRoom(1, 2) == PairRoom(1, 3) {
		t.Error("Distinct pairs must map to distinct rooms")
	}
}

func TestJoinChatBroadcastsToOthers(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)

	c1.emit(Frame{Type: "join_chat", ChatID: 5})
	c2.emit(Frame{Type: "join_chat", ChatID: 5})

	event := recv(t, c1)
	if event["type"] != "user_joined" || event["userId"] != float64(2) {
		t.Errorf("Unexpected event: %+v", event)
	}
	// The joiner does not hear its own join.
	expectSilence(t, c2)
}

func TestTypingExcludesSender(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)

	c1.emit(Frame{Type: "join_chat", ChatID: 5})
	c2.emit(Frame{Type: "join_chat", ChatID: 5})
	recv(t, c1) // c2's join

	c1.emit(Frame{Type: "typing", ChatID: 5, IsTyping: true})

	event := recv(t, c2)
	if event["type"] != "typing" || event["isTyping"] != true || event["userId"] != float64(1) {
		t.Errorf("Unexpected event: %+v", event)
	}
	expectSilence(t, c1)
}

func TestSendMessageReachesWholeRoom(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)

	c1.emit(Frame{Type: "join_chat", ChatID: 5})
	c2.emit(Frame{Type: "join_chat", ChatID: 5})
	recv(t, c1)

	c1.emit(Frame{Type: "send_message", ChatID: 5, Message: json.RawMessage(`{"body":"hi"}`)})

	// The sender's own connection receives the event too.
	for _, c := range []*Client{c1, c2} {
		event := recv(t, c)
		if event["type"] != "new_message" || event["chatId"] != float64(5) {
			t.Errorf("Unexpected event: %+v", event)
		}
	}
}

func TestLeaveChatStopsDelivery(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)

	c1.emit(Frame{Type: "join_chat", ChatID: 5})
	c2.emit(Frame{Type: "join_chat", ChatID: 5})
	recv(t, c1)

	c2.emit(Frame{Type: "leave_chat", ChatID: 5})
	event := recv(t, c1)
	if event["type"] != "user_left" {
		t.Errorf("Expected user_left, got %+v", event)
	}

	c1.emit(Frame{Type: "send_message", ChatID: 5, Message: json.RawMessage(`"hi"`)})
	recv(t, c1)
	expectSilence(t, c2)
}

func TestDirectMessageDelivery(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, 1)
	bob := newTestClient(h, 2)

	alice.emit(Frame{Type: "join_direct", UserID: 2})
	bob.emit(Frame{Type: "join_direct", UserID: 1})

	alice.emit(Frame{Type: "send_direct_message", ReceiverID: 2, Message: json.RawMessage(`{"body":"hello"}`)})

	event := recv(t, bob)
	if event["type"] != "new_direct_message" {
		t.Fatalf("Unexpected event: %+v", event)
	}
	if event["sender"] != float64(1) || event["receiver"] != float64(2) {
		t.Errorf("Wrong routing fields: %+v", event)
	}
	if event["timestamp"] == nil {
		t.Error("Expected server-assigned timestamp")
	}
	message, _ := event["message"].(map[string]interface{})
	if message["body"] != "hello" {
		t.Errorf("Wrong payload: %+v", event["message"])
	}

	// Exactly one delivery.
	expectSilence(t, bob)
}

func TestAnonymousClientCannotUseDirectRooms(t *testing.T) {
	h := newTestHub()
	anon := newTestClient(h, 0)
	alice := newTestClient(h, 1)

	// The anonymous connection is admitted but its direct-room joins no-op.
	anon.emit(Frame{Type: "join_direct", UserID: 1})
	alice.emit(Frame{Type: "join_direct", UserID: 2})
	alice.emit(Frame{Type: "send_direct_message", ReceiverID: 2, Message: json.RawMessage(`"hi"`)})

	expectSilence(t, anon)
}

func TestKeylessFramesAreDropped(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)

	c1.emit(Frame{Type: "join_chat", ChatID: 5})
	c2.emit(Frame{Type: "join_chat", ChatID: 5})
	recv(t, c1)

	c1.emit(Frame{Type: "join_chat"})
	c1.emit(Frame{Type: "send_message", ChatID: 5})
	c1.emit(Frame{Type: "send_message", Message: json.RawMessage(`"hi"`)})
	c1.emit(Frame{Type: "typing"})
	c1.emit(Frame{Type: "bogus"})

	expectSilence(t, c1)
	expectSilence(t, c2)
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)

	c1.emit(Frame{Type: "join_chat", ChatID: 5})
	c2.emit(Frame{Type: "join_chat", ChatID: 5})
	recv(t, c1)

	h.unregister <- c2

	c1.emit(Frame{Type: "send_message", ChatID: 5, Message: json.RawMessage(`"hi"`)})
	recv(t, c1)

	// c2's channel was closed on unregister; no message reached it first.
	select {
	case _, ok := <-c2.send:
		if ok {
			t.Error("Expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Error("Expected closed channel")
	}
}
