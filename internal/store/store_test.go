package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/pointjar/internal/database"
	"github.com/dukerupert/pointjar/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, username, role string, balance int) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), username, "hash", role, balance)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}
