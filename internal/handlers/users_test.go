package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func userPost(t *testing.T, handler http.HandlerFunc, userID int64, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req := asUser(httptest.NewRequest("POST", "/", bytes.NewReader(body)), userID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSendRequest(t *testing.T) {
	st := newTestStore(t)
	h := &UserHandler{Store: st, Logger: zap.NewNop().Sugar()}
	alice := createUser(t, st, "alice", "a@x.com", "pw")
	bob := createUser(t, st, "bob", "b@x.com", "pw")

	rr := userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": bob})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// Duplicate
	rr = userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": bob})
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", rr.Code)
	}

	// Self-target
	rr = userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": alice})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for self, got %d", rr.Code)
	}

	// Unknown target
	rr = userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": 9999})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown user, got %d", rr.Code)
	}
}

func TestMutualSendBecomesAccept(t *testing.T) {
	st := newTestStore(t)
	h := &UserHandler{Store: st, Logger: zap.NewNop().Sugar()}
	alice := createUser(t, st, "alice", "a@x.com", "pw")
	bob := createUser(t, st, "bob", "b@x.com", "pw")

	rr := userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": bob})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	// Bob's crossing request completes the handshake instead of conflicting.
	rr = userPost(t, h.SendRequest, bob, map[string]int64{"receiverId": alice})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	connected, err := st.Connected(context.Background(), alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if !connected {
		t.Error("Expected users to be connected after mutual send")
	}

	// After connection, a fresh request conflicts.
	rr = userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": bob})
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409 once connected, got %d", rr.Code)
	}
}

func TestAcceptAndRejectRequest(t *testing.T) {
	st := newTestStore(t)
	h := &UserHandler{Store: st, Logger: zap.NewNop().Sugar()}
	alice := createUser(t, st, "alice", "a@x.com", "pw")
	bob := createUser(t, st, "bob", "b@x.com", "pw")
	carol := createUser(t, st, "carol", "c@x.com", "pw")

	userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": bob})
	userPost(t, h.SendRequest, carol, map[string]int64{"receiverId": bob})

	rr := userPost(t, h.AcceptRequest, bob, map[string]int64{"senderId": alice})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	// Accepting the same request twice finds nothing.
	rr = userPost(t, h.AcceptRequest, bob, map[string]int64{"senderId": alice})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on repeat accept, got %d", rr.Code)
	}

	rr = userPost(t, h.RejectRequest, bob, map[string]int64{"senderId": carol})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	connected, _ := st.Connected(context.Background(), bob, carol)
	if connected {
		t.Error("Reject must not connect users")
	}
}

func TestReceivedRequestsJoinsProfiles(t *testing.T) {
	st := newTestStore(t)
	h := &UserHandler{Store: st, Logger: zap.NewNop().Sugar()}
	alice := createUser(t, st, "alice", "a@x.com", "pw")
	bob := createUser(t, st, "bob", "b@x.com", "pw")

	userPost(t, h.SendRequest, alice, map[string]int64{"receiverId": bob})

	req := asUser(httptest.NewRequest("GET", "/api/users/requests/received", nil), bob)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ReceivedRequests).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp struct {
		Requests []struct {
			From struct {
				ID       int64  `json:"id"`
				Username string `json:"username"`
			} `json:"from"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Requests) != 1 || resp.Requests[0].From.Username != "alice" {
		t.Errorf("Unexpected requests: %+v", resp.Requests)
	}
}

func TestUpdateProfile(t *testing.T) {
	st := newTestStore(t)
	h := &UserHandler{Store: st, Logger: zap.NewNop().Sugar()}
	alice := createUser(t, st, "alice", "a@x.com", "pw")
	createUser(t, st, "bob", "b@x.com", "pw")

	body, _ := json.Marshal(map[string]string{"bio": "hello", "fullName": "Alice A"})
	req := asUser(httptest.NewRequest("PUT", "/api/users/me", bytes.NewReader(body)), alice)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.UpdateMe).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	user, _ := st.GetUserByID(context.Background(), alice)
	if user.Bio != "hello" || user.FullName != "Alice A" {
		t.Errorf("Profile not updated: %+v", user)
	}

	// Conflicting username
	body, _ = json.Marshal(map[string]string{"username": "bob"})
	req = asUser(httptest.NewRequest("PUT", "/api/users/me", bytes.NewReader(body)), alice)
	rr = httptest.NewRecorder()
	http.HandlerFunc(h.UpdateMe).ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rr.Code)
	}
}
