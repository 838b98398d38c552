package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/ideaflow/internal/db"
)

// NewTestDB opens a migrated in-memory store holding the project, outbox
// and generation job tables. It is closed with the test.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	if err != nil {
		t.Fatalf("opening in-memory ideaflow store: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// NewTestUoW returns the project UnitOfWork the CLI wires, on database.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}
