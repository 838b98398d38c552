package formatter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/alexanderramin/ideaflow/internal/sweeper"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newProject(t *testing.T) *domain.Project {
	t.Helper()
	p, _, err := domain.NewProject(domain.ProjectParams{
		ID:     "12345678-aaaa-bbbb-cccc-1234567890ab",
		UserID: "alice",
		IdeaID: "idea-1",
		Name:   "Meal planner",
		Mode:   domain.ModeDevelopment,
	}, now)
	require.NoError(t, err)
	return p
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := RenderTable([]string{"A", "LONG HEADER"}, [][]string{{"wide cell", "x"}, {"y"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(lines[1]))
	assert.Equal(t, strings.Index(lines[0], "LONG"), strings.Index(lines[2], "x"))
	assert.Empty(t, RenderTable(nil, nil))
}

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, "  0%"},
		{40, " 40%"},
		{100, "100%"},
		{150, "100%"},
		{-5, "  0%"},
	}
	for _, tc := range tests {
		out := RenderProgress(tc.pct, 10)
		assert.True(t, strings.HasSuffix(out, tc.want), "%d -> %q", tc.pct, out)
	}
	assert.Equal(t, 4, strings.Count(RenderProgress(40, 10), filledBlock))
}

func TestFormatProjectList(t *testing.T) {
	p := newProject(t)
	out := FormatProjectList([]*domain.Project{p})
	assert.Contains(t, out, "12345678")
	assert.NotContains(t, out, "1234567890ab")
	assert.Contains(t, out, "Meal planner")
	assert.Contains(t, out, "Requirement Analysis")
	assert.Contains(t, out, "Planning")
}

func TestFormatProjectDetail_ShowsWorkflow(t *testing.T) {
	p := newProject(t)
	_, err := p.StartCurrentStage(now)
	require.NoError(t, err)
	_, err = p.AdvanceStage(now)
	require.NoError(t, err)

	out := FormatProjectDetail(p)
	assert.Contains(t, out, "idea-1")
	assert.Contains(t, out, "WORKFLOW")
	assert.Contains(t, out, "1. Requirement Analysis")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "▸ 2. Solution Design")
	assert.Contains(t, out, "20%")
}

func TestFormatStage(t *testing.T) {
	p := newProject(t)
	_, err := p.AddArtifact("requirement", domain.ArtifactInput{ID: "a1", Type: "prd", Name: "PRD", Tokens: 42}, now)
	require.NoError(t, err)
	stage, err := p.Workflow.Stage("requirement")
	require.NoError(t, err)

	out := FormatStage(*stage)
	assert.Contains(t, out, "(requirement)")
	assert.Contains(t, out, "PRD")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "expects:")
}

func TestFormatDropped(t *testing.T) {
	assert.Empty(t, FormatDropped(nil))
	out := FormatDropped([]domain.DroppedArtifact{{StageID: "design", ArtifactID: "a1", Name: "Architecture"}})
	assert.Contains(t, out, "1 artifact(s)")
	assert.Contains(t, out, "Architecture")
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(&service.ProjectStats{
		Total: 3, Live: 2,
		ByStatus: map[domain.ProjectStatus]int{domain.ProjectStatusPlanning: 2, domain.ProjectStatusDeleted: 1},
	})
	assert.Contains(t, out, "total 3")
	assert.Contains(t, out, "live 2")
	assert.Contains(t, out, "Deleted")
}

func TestFormatSweepResult(t *testing.T) {
	res := sweeper.SweepResult{
		At:     now,
		Cutoff: now.Add(-time.Hour),
		Rules: []sweeper.RuleResult{
			{Kind: domain.JobReport, Rule: "complete-with-content", Target: domain.JobCompleted, Matched: 2},
			{Kind: domain.JobReport, Rule: "fail-without-content", Target: domain.JobFailed, Matched: 1},
			{Kind: domain.JobBusinessPlan, Rule: "complete-with-content", Target: domain.JobCompleted, Err: errors.New("timeout")},
		},
	}
	out := FormatSweepResult(res)
	assert.Contains(t, out, "completed 2")
	assert.Contains(t, out, "failed 1")
	assert.Contains(t, out, "2025-06-15 09:00")
	assert.Contains(t, out, "error: timeout")
}

func TestFormatJobList(t *testing.T) {
	job, err := domain.NewGenerationJob("job-1", "p1", "alice", domain.JobReport, "Market report", now)
	require.NoError(t, err)
	job.Sections = []domain.Section{{Key: "intro", Content: "x"}, {Key: "body"}}

	out := FormatJobList([]*domain.GenerationJob{job})
	assert.Contains(t, out, "Market report")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "generating")
}
