package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepo_AppendListMark(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteOutboxRepo(db)
	ctx := context.Background()
	now := testutil.FixedNow

	require.NoError(t, repo.Append(ctx, domain.ProjectCreated{ProjectID: "p1", IdeaID: "i1", Name: "One", Mode: domain.ModeDevelopment, CreatedAt: now}))
	require.NoError(t, repo.Append(ctx, domain.ProjectDeleted{ProjectID: "p1", Name: "One", DeletedAt: now.Add(time.Minute)}))

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.EventProjectCreated, pending[0].EventName)
	assert.Equal(t, domain.EventProjectDeleted, pending[1].EventName)
	assert.Equal(t, "p1", pending[0].AggregateID)

	var created domain.ProjectCreated
	require.NoError(t, json.Unmarshal(pending[0].Payload, &created))
	assert.Equal(t, "i1", created.IdeaID)
	assert.True(t, now.Equal(created.CreatedAt))

	require.NoError(t, repo.MarkPublished(ctx, []string{pending[0].ID}, now))
	pending, err = repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.EventProjectDeleted, pending[0].EventName)

	require.NoError(t, repo.MarkPublished(ctx, nil, now))
}

func TestOutboxRepo_ListPendingRespectsLimit(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteOutboxRepo(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, domain.ProjectDeleted{ProjectID: "p", DeletedAt: testutil.FixedNow.Add(time.Duration(i) * time.Second)}))
	}
	pending, err := repo.ListPending(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	assert.True(t, pending[0].OccurredAt.Before(pending[2].OccurredAt))
}
