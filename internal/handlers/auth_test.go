package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"linkup/internal/models"
)

func postJSON(t *testing.T, handler http.HandlerFunc, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", target, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRequestOtp(t *testing.T) {
	h, st := newTestAuthHandler(t)

	rr := postJSON(t, h.RequestOtp, "/api/auth/register/request-otp", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "pw123456",
	})
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// A pending record was created.
	if _, err := st.GetOtp(context.Background(), "a@x.com"); err != nil {
		t.Errorf("Expected pending otp record: %v", err)
	}

	// Missing fields
	rr = postJSON(t, h.RequestOtp, "/api/auth/register/request-otp", map[string]string{
		"username": "alice",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}

	// Existing account
	createUser(t, st, "bob", "b@x.com", "pw123456")
	rr = postJSON(t, h.RequestOtp, "/api/auth/register/request-otp", map[string]string{
		"username": "bob", "email": "b@x.com", "password": "pw123456",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rr.Code)
	}
}

func TestVerifyOtp(t *testing.T) {
	h, st := newTestAuthHandler(t)

	// No pending record
	rr := postJSON(t, h.VerifyOtp, "/api/auth/register/verify", map[string]string{
		"email": "a@x.com", "otp": "123456",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}

	codeHash, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	passwordHash, _ := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	st.UpsertOtp(context.Background(), &models.OtpRegistration{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: string(passwordHash),
		OtpHash:      string(codeHash),
		ExpiresAt:    time.Now().UTC().Add(10 * time.Minute),
	})

	// Wrong code
	rr = postJSON(t, h.VerifyOtp, "/api/auth/register/verify", map[string]string{
		"email": "a@x.com", "otp": "000000",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}

	// Correct code
	rr = postJSON(t, h.VerifyOtp, "/api/auth/register/verify", map[string]string{
		"email": "a@x.com", "otp": "123456",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string         `json:"token"`
		User  models.Summary `json:"user"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" || resp.User.Username != "alice" {
		t.Errorf("Unexpected response: %+v", resp)
	}

	// The record is consumed: a repeat verify is NotFound.
	rr = postJSON(t, h.VerifyOtp, "/api/auth/register/verify", map[string]string{
		"email": "a@x.com", "otp": "123456",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after success, got %d", rr.Code)
	}
}

func TestLogin(t *testing.T) {
	h, st := newTestAuthHandler(t)
	createUser(t, st, "alice", "a@x.com", "pw123456")

	rr := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "pw123456",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Token == "" {
		t.Error("Expected session token")
	}

	wrongPassword := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "nope",
	})
	unknownEmail := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email": "nobody@x.com", "password": "pw123456",
	})

	// Both failures are indistinguishable.
	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401/401, got %d/%d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Errorf("Responses differ: %q vs %q", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}
