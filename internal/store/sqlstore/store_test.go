package sqlstore

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"linkup/internal/models"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New(zap.NewNop().Sugar(), "sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
}

func TeardownTestDB() {
	testStore.db.Close()
}

func mustCreateUser(t *testing.T, username, email string) int64 {
	t.Helper()
	id, err := testStore.CreateUser(context.Background(), &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return id
}
