package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linkup/internal/auth"
	"linkup/internal/email"
	"linkup/internal/middleware"
	"linkup/internal/models"
	"linkup/internal/otp"
	"linkup/internal/store/sqlstore"
)

func newTestStore(t *testing.T) *sqlstore.SQLStore {
	t.Helper()
	st, err := sqlstore.New(zap.NewNop().Sugar(), "sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestAuthHandler(t *testing.T) (*AuthHandler, *sqlstore.SQLStore) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	st := newTestStore(t)
	tokens := auth.NewManager("test-secret", time.Hour)
	mailer := email.NewSender(logger, "", "", "", "", "")
	svc := otp.NewService(logger, st, mailer, tokens, 10*time.Minute, 5)
	return &AuthHandler{Store: st, Otp: svc, Tokens: tokens, Logger: logger}, st
}

func createUser(t *testing.T, st *sqlstore.SQLStore, username, emailAddr, password string) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	id, err := st.CreateUser(context.Background(), &models.User{
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hash),
	})
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return id
}

// asUser attaches an authenticated identity the way the auth middleware does.
func asUser(r *http.Request, userID int64) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}
