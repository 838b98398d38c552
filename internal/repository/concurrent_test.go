package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConcurrentTestDB creates a file-backed SQLite database in a temp directory.
// Unlike :memory:, a file-backed DB shares state across all connections in the
// pool, which is required to test real concurrent access with WAL mode.
func newConcurrentTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	database, err := db.OpenDB(filepath.Join(dir, "concurrent_test.db"))
	require.NoError(t, err, "failed to create concurrent test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// TestConcurrentAdvance_OneWriterWins loads the same project twice and
// advances both copies in parallel transactions. The version check must let
// exactly one of them commit.
func TestConcurrentAdvance_OneWriterWins(t *testing.T) {
	database := newConcurrentTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteProjectRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	proj := testutil.NewTestProject(t, "Contended")
	_, err := proj.StartCurrentStage(testutil.FixedNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, proj))

	const writers = 4
	copies := make([]*domain.Project, writers)
	for i := range copies {
		p, err := repo.GetByID(ctx, proj.ID)
		require.NoError(t, err)
		_, err = p.AdvanceStage(testutil.FixedNow)
		require.NoError(t, err)
		copies[i] = p
	}

	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range copies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				return NewSQLiteProjectRepo(tx).Save(ctx, copies[i])
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, wins)

	fetched, err := repo.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetched.Version)
	assert.Equal(t, "design", fetched.Workflow.CurrentStageID)
	assert.Len(t, fetched.Workflow.Stages, 5)
}
