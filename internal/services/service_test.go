package services

import (
	"database/sql"
	"testing"

	"github.com/libreshelf/bookstore-be/internal/database"
)

// newTestDB opens an in-memory SQLite database. The pool is pinned to a
// single connection so every query sees the same memory database.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}
