package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*sql.DB, *db.SQLiteUnitOfWork) {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database, db.NewSQLiteUnitOfWork(database)
}

// saveWithEvent writes a project row and its outbox row the way a service
// mutation does.
func saveWithEvent(ctx context.Context, tx db.DBTX, id string) error {
	const ts = "2025-06-15T10:00:00.000000Z"
	if _, err := tx.ExecContext(ctx, `INSERT INTO projects (id, user_id, idea_id, name, created_at, updated_at)
		VALUES (?, 'alice', ?, 'Demo', ?, ?)`, id, "idea-"+id, ts, ts); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO outbox_events (id, aggregate_id, event_name, payload, occurred_at, created_at)
		VALUES (?, ?, 'project.created', '{}', ?, ?)`, "ev-"+id, id, ts, ts)
	return err
}

func rowCounts(t *testing.T, database *sql.DB, id string) (projects, events int) {
	t.Helper()
	require.NoError(t, database.QueryRow(`SELECT count(*) FROM projects WHERE id = ?`, id).Scan(&projects))
	require.NoError(t, database.QueryRow(`SELECT count(*) FROM outbox_events WHERE aggregate_id = ?`, id).Scan(&events))
	return projects, events
}

func TestWithinTx_CommitsProjectAndEvent(t *testing.T) {
	database, uow := openStore(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		return saveWithEvent(ctx, tx, "p1")
	})
	require.NoError(t, err)

	projects, events := rowCounts(t, database, "p1")
	assert.Equal(t, 1, projects)
	assert.Equal(t, 1, events)
}

func TestWithinTx_ErrorDiscardsBothWrites(t *testing.T) {
	database, uow := openStore(t)
	rejected := errors.New("stage gate rejected")

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := saveWithEvent(ctx, tx, "p2"); err != nil {
			return err
		}
		return rejected
	})
	require.ErrorIs(t, err, rejected)

	projects, events := rowCounts(t, database, "p2")
	assert.Zero(t, projects)
	assert.Zero(t, events)
}

func TestWithinTx_PanicDiscardsBothWrites(t *testing.T) {
	database, uow := openStore(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = saveWithEvent(ctx, tx, "p3")
			panic("boom")
		})
	})

	projects, events := rowCounts(t, database, "p3")
	assert.Zero(t, projects)
	assert.Zero(t, events)
}
