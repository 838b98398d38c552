package service

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/repository"
	"github.com/alexanderramin/ideaflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationJobService_Lifecycle(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	projects := repository.NewSQLiteProjectRepo(database)
	clock := WithClock(testutil.FixedClock(testutil.FixedNow))

	projectSvc := NewProjectService(projects, testutil.NewTestUoW(database), clock)
	p := createProject(t, projectSvc, "alice", "idea-1")

	later := testutil.FixedNow.Add(time.Minute)
	svc := NewGenerationJobService(repository.NewSQLiteGenerationJobRepo(database), projects,
		WithClock(testutil.FixedClock(later)))

	job, err := svc.Create(ctx, CreateJobInput{UserID: "alice", ProjectID: p.ID, Kind: domain.JobBusinessPlan, Title: "Plan"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobDraft, job.Status)

	job, err = svc.AppendSection(ctx, "alice", job.ID, SectionInput{Key: "market", Content: "TAM is large"})
	require.NoError(t, err)
	require.Len(t, job.Sections, 1)
	assert.Equal(t, 1, job.PopulatedSections())

	jobs, err := svc.ListByProject(ctx, "alice", p.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
}

func TestGenerationJobService_RejectsForeignUsers(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	projects := repository.NewSQLiteProjectRepo(database)

	projectSvc := NewProjectService(projects, testutil.NewTestUoW(database))
	p := createProject(t, projectSvc, "alice", "idea-1")
	svc := NewGenerationJobService(repository.NewSQLiteGenerationJobRepo(database), projects)

	_, err := svc.Create(ctx, CreateJobInput{UserID: "mallory", ProjectID: p.ID, Kind: domain.JobReport})
	require.ErrorIs(t, err, domain.ErrForbidden)

	job, err := svc.Create(ctx, CreateJobInput{UserID: "alice", ProjectID: p.ID, Kind: domain.JobReport})
	require.NoError(t, err)

	_, err = svc.AppendSection(ctx, "mallory", job.ID, SectionInput{Key: "intro", Content: "x"})
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.ListByProject(ctx, "mallory", p.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Create(ctx, CreateJobInput{UserID: "alice", ProjectID: p.ID, Kind: "memo"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AppendSection(ctx, "alice", job.ID, SectionInput{Content: "no key"})
	require.ErrorIs(t, err, domain.ErrValidation)
}
