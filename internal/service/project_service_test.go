package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/repository"
	"github.com/alexanderramin/ideaflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, ev UseCaseEvent) {
	o.events = append(o.events, ev)
}

func setupProjectService(t *testing.T, opts ...Option) (ProjectService, *sql.DB) {
	t.Helper()
	database := testutil.NewTestDB(t)
	opts = append([]Option{WithClock(testutil.FixedClock(testutil.FixedNow))}, opts...)
	svc := NewProjectService(repository.NewSQLiteProjectRepo(database), testutil.NewTestUoW(database), opts...)
	return svc, database
}

func createProject(t *testing.T, svc ProjectService, userID, ideaID string) *domain.Project {
	t.Helper()
	p, err := svc.Create(context.Background(), CreateProjectInput{
		UserID: userID,
		IdeaID: ideaID,
		Name:   "Meal planner",
		Mode:   domain.ModeDevelopment,
	})
	require.NoError(t, err)
	return p
}

func pendingEvents(t *testing.T, database *sql.DB) []repository.OutboxRecord {
	t.Helper()
	records, err := repository.NewSQLiteOutboxRepo(database).ListPending(context.Background(), 100)
	require.NoError(t, err)
	return records
}

func TestProjectService_CreateWritesProjectAndEvent(t *testing.T) {
	obs := &recordingObserver{}
	svc, database := setupProjectService(t, WithObserver(obs))
	ctx := context.Background()

	p := createProject(t, svc, "alice", "idea-1")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, int64(1), p.Version)
	assert.True(t, testutil.FixedNow.Equal(p.CreatedAt))

	fetched, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusPlanning, fetched.Status)
	require.NotNil(t, fetched.Workflow)
	assert.Equal(t, "requirement", fetched.Workflow.CurrentStageID)

	events := pendingEvents(t, database)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventProjectCreated, events[0].EventName)
	assert.Equal(t, p.ID, events[0].AggregateID)

	require.Len(t, obs.events, 1)
	assert.Equal(t, "create-project", obs.events[0].Name)
	assert.True(t, obs.events[0].Success)
	assert.Equal(t, p.ID, obs.events[0].Fields["project_id"])
}

func TestProjectService_CreateValidation(t *testing.T) {
	svc, database := setupProjectService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateProjectInput
		want error
	}{
		{"missing user", CreateProjectInput{IdeaID: "i", Name: "n", Mode: domain.ModeDevelopment}, domain.ErrValidation},
		{"missing idea", CreateProjectInput{UserID: "u", Name: "n", Mode: domain.ModeDevelopment}, domain.ErrValidation},
		{"missing name", CreateProjectInput{UserID: "u", IdeaID: "i", Mode: domain.ModeDevelopment}, domain.ErrValidation},
		{"blank agent", CreateProjectInput{UserID: "u", IdeaID: "i", Name: "n", Mode: domain.ModeDevelopment, AssignedAgents: []string{""}}, domain.ErrValidation},
		{"unsupported mode", CreateProjectInput{UserID: "u", IdeaID: "i", Name: "n", Mode: "research"}, domain.ErrUnsupportedMode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, pendingEvents(t, database))
}

func TestProjectService_CreateRejectsSecondLiveProjectForIdea(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	first := createProject(t, svc, "alice", "idea-1")
	_, err := svc.Create(ctx, CreateProjectInput{UserID: "alice", IdeaID: "idea-1", Name: "Again", Mode: domain.ModeDevelopment})
	require.ErrorIs(t, err, domain.ErrConflict)

	// Another user may use the same idea id.
	createProject(t, svc, "bob", "idea-1")

	// Once the first project is deleted the idea is free again.
	require.NoError(t, svc.Delete(ctx, "alice", first.ID))
	createProject(t, svc, "alice", "idea-1")
}

func TestProjectService_OwnershipCheckedFirst(t *testing.T) {
	svc, database := setupProjectService(t)
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	_, err := svc.Get(ctx, "mallory", p.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	name := "Hijacked"
	_, err = svc.Update(ctx, "mallory", p.ID, domain.ProjectUpdate{Name: &name})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.AdvanceStage(ctx, "mallory", p.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.AddArtifact(ctx, "mallory", p.ID, AddArtifactInput{StageID: "requirement", Type: "doc", Name: "x"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.RemoveArtifact(ctx, "mallory", p.ID, "requirement", "a1")
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.ErrorIs(t, svc.Delete(ctx, "mallory", p.ID), domain.ErrForbidden)
	require.ErrorIs(t, svc.Purge(ctx, "mallory", p.ID), domain.ErrForbidden)

	fetched, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meal planner", fetched.Name)
	assert.Equal(t, int64(1), fetched.Version)
	assert.Len(t, pendingEvents(t, database), 1)

	_, err = svc.Get(ctx, "alice", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_UpdateEmitsSnapshots(t *testing.T) {
	svc, database := setupProjectService(t)
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	name := "Meal planner v2"
	status := domain.ProjectStatusInProgress
	updated, err := svc.Update(ctx, "alice", p.ID, domain.ProjectUpdate{Name: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, int64(2), updated.Version)

	events := pendingEvents(t, database)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventProjectUpdated, events[1].EventName)

	bogus := domain.ProjectStatus("bogus")
	_, err = svc.Update(ctx, "alice", p.ID, domain.ProjectUpdate{Status: &bogus})
	require.ErrorIs(t, err, domain.ErrValidation)

	fetched, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusInProgress, fetched.Status)
	assert.Len(t, pendingEvents(t, database), 2)
}

func TestProjectService_StageLifecycle(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	res, err := svc.StartCurrentStage(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "requirement", res.Stage.ID)
	assert.Equal(t, domain.StageInProgress, res.Stage.Status)

	for _, next := range []string{"design", "development", "testing", "deployment"} {
		res, err = svc.AdvanceStage(ctx, "alice", p.ID)
		require.NoError(t, err)
		assert.Equal(t, next, res.Stage.ID)
	}

	_, err = svc.AdvanceStage(ctx, "alice", p.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyAtFinalStage)

	res, err = svc.CompleteCurrentStage(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, res.Stage.Status)
	assert.Equal(t, 100, res.Project.Workflow.CompletionPercentage())

	fetched, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, fetched.Workflow.CompletionPercentage())
}

func TestProjectService_JumpToStage(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	res, err := svc.JumpToStage(ctx, "alice", p.ID, "testing")
	require.NoError(t, err)
	assert.Equal(t, "testing", res.Project.Workflow.CurrentStageID)
	assert.Equal(t, domain.StageInProgress, res.Stage.Status)

	_, err = svc.JumpToStage(ctx, "alice", p.ID, "marketing")
	require.ErrorIs(t, err, domain.ErrStageNotFound)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_Artifacts(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	a, err := svc.AddArtifact(ctx, "alice", p.ID, AddArtifactInput{
		StageID: "requirement",
		Type:    "prd",
		Name:    "Product requirements",
		Content: "# PRD",
		Source:  domain.SourceAI,
		Tokens:  1200,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.True(t, testutil.FixedNow.Equal(a.CreatedAt))

	_, err = svc.AddArtifact(ctx, "alice", p.ID, AddArtifactInput{StageID: "requirement", Type: "prd"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddArtifact(ctx, "alice", p.ID, AddArtifactInput{StageID: "requirement", Type: "prd", Name: "x", Source: "scraped"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddArtifact(ctx, "alice", p.ID, AddArtifactInput{StageID: "nowhere", Type: "prd", Name: "x"})
	require.ErrorIs(t, err, domain.ErrStageNotFound)

	fetched, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	stage, err := fetched.Workflow.Stage("requirement")
	require.NoError(t, err)
	require.Len(t, stage.Artifacts, 1)
	assert.Equal(t, "Product requirements", stage.Artifacts[0].Name)

	removed, err := svc.RemoveArtifact(ctx, "alice", p.ID, "requirement", a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.RemoveArtifact(ctx, "alice", p.ID, "requirement", a.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	fetched, err = svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fetched.Version, "a no-op removal must not write")
}

func TestProjectService_CustomizeWorkflowReportsDroppedArtifacts(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	_, err := svc.AddArtifact(ctx, "alice", p.ID, AddArtifactInput{StageID: "design", ID: "arch", Type: "doc", Name: "Architecture"})
	require.NoError(t, err)

	res, err := svc.CustomizeWorkflow(ctx, "alice", p.ID, []domain.StageSpec{
		{ID: "discovery", Name: "Discovery"},
		{ID: "build", Name: "Build"},
	})
	require.NoError(t, err)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "arch", res.Dropped[0].ArtifactID)

	fetched, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Workflow.IsCustom)
	assert.Equal(t, "discovery", fetched.Workflow.CurrentStageID)
	require.Len(t, fetched.Workflow.Stages, 2)
	assert.Equal(t, 2, fetched.Workflow.Stages[1].OrderNumber)

	_, err = svc.CustomizeWorkflow(ctx, "alice", p.ID, nil)
	require.ErrorIs(t, err, domain.ErrEmptyWorkflow)
}

func TestProjectService_DeleteAndPurge(t *testing.T) {
	svc, database := setupProjectService(t)
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	require.ErrorIs(t, svc.Purge(ctx, "alice", p.ID), domain.ErrInvalidTransition)

	require.NoError(t, svc.Delete(ctx, "alice", p.ID))
	require.ErrorIs(t, svc.Delete(ctx, "alice", p.ID), domain.ErrProjectDeleted)

	_, err := svc.AdvanceStage(ctx, "alice", p.ID)
	require.ErrorIs(t, err, domain.ErrProjectDeleted)

	live, err := svc.List(ctx, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, live)
	all, err := svc.List(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.ProjectStatusDeleted, all[0].Status)

	events := pendingEvents(t, database)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventProjectDeleted, events[1].EventName)

	require.NoError(t, svc.Purge(ctx, "alice", p.ID))
	_, err = svc.Get(ctx, "alice", p.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_Stats(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	a := createProject(t, svc, "alice", "idea-1")
	createProject(t, svc, "alice", "idea-2")
	createProject(t, svc, "bob", "idea-3")
	require.NoError(t, svc.Delete(ctx, "alice", a.ID))

	stats, err := svc.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, 1, stats.ByStatus[domain.ProjectStatusPlanning])
	assert.Equal(t, 1, stats.ByStatus[domain.ProjectStatusDeleted])

	_, err = svc.Stats(ctx, "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestProjectService_CreateRollsBackOnAnyFailedWrite(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	injected := errors.New("disk full")

	// Create issues nine writes: project, workflow, stage reset, five stages
	// and the outbox event.
	for n := 1; n <= 9; n++ {
		uow := &testutil.FailingWriteUoW{DB: database, Nth: n, Err: injected}
		svc := NewProjectService(repository.NewSQLiteProjectRepo(database), uow,
			WithClock(testutil.FixedClock(testutil.FixedNow)))

		_, err := svc.Create(ctx, CreateProjectInput{UserID: "alice", IdeaID: "idea-1", Name: "Doomed", Mode: domain.ModeDevelopment})
		require.ErrorIs(t, err, injected, "write %d", n)

		projects, err := svc.List(ctx, "alice", true)
		require.NoError(t, err)
		assert.Empty(t, projects, "write %d", n)
		assert.Empty(t, pendingEvents(t, database), "write %d", n)
	}
}

func TestProjectService_FailedSaveKeepsPriorState(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	projects := repository.NewSQLiteProjectRepo(database)
	clock := WithClock(testutil.FixedClock(testutil.FixedNow))

	svc := NewProjectService(projects, db.NewSQLiteUnitOfWork(database), clock)
	p := createProject(t, svc, "alice", "idea-1")

	uow := &testutil.FailingWriteUoW{DB: database, Match: "INSERT INTO outbox_events", Nth: 1, Err: errors.New("boom")}
	failing := NewProjectService(projects, uow, clock)
	require.Error(t, failing.Delete(ctx, "alice", p.ID))
	writes := uow.Writes()
	require.NotEmpty(t, writes)
	assert.Contains(t, writes[len(writes)-1], "INSERT INTO outbox_events")

	fetched, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusPlanning, fetched.Status)
	assert.Equal(t, int64(1), fetched.Version)
	assert.Len(t, pendingEvents(t, database), 1)
}

func TestProjectService_ObserverSeesFailures(t *testing.T) {
	obs := &recordingObserver{}
	svc, _ := setupProjectService(t, WithObserver(obs))
	ctx := context.Background()
	p := createProject(t, svc, "alice", "idea-1")

	_, err := svc.CompleteCurrentStage(ctx, "alice", p.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	last := obs.events[len(obs.events)-1]
	assert.Equal(t, "complete-stage", last.Name)
	assert.False(t, last.Success)
	assert.ErrorIs(t, last.Err, domain.ErrInvalidTransition)
	assert.GreaterOrEqual(t, last.Duration, time.Duration(0))
}
