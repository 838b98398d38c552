package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/charmbracelet/lipgloss"
)

// FormatProjectList renders the caller's projects with workflow progress.
func FormatProjectList(projects []*domain.Project) string {
	headers := []string{"ID", "NAME", "STATUS", "STAGE", "PROGRESS"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		stage, pct := Dim("--"), 0
		if p.Workflow != nil {
			if cur, err := p.Workflow.CurrentStage(); err == nil {
				stage = cur.Name
			}
			pct = p.Workflow.CompletionPercentage()
		}
		rows = append(rows, []string{
			TruncID(p.ID),
			Bold(p.Name),
			ProjectStatusPill(p.Status),
			stage,
			RenderProgress(pct, 10),
		})
	}
	return RenderBox("Projects", RenderTable(headers, rows))
}

// FormatProjectDetail renders project metadata beside its workflow.
func FormatProjectDetail(p *domain.Project) string {
	var meta strings.Builder
	meta.WriteString(Bold(p.Name) + "\n\n")
	field := func(label, value string) {
		meta.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render(fmt.Sprintf("%-9s", label)), value))
	}
	field("STATUS", ProjectStatusPill(p.Status))
	field("ID", p.ID)
	field("IDEA", p.IdeaID)
	field("MODE", string(p.Mode))
	field("CATEGORY", orDash(p.WorkflowCategory))
	field("AGENTS", orDash(strings.Join(p.AssignedAgents, ", ")))
	field("VERSION", fmt.Sprintf("%d", p.Version))
	field("CREATED", Timestamp(&p.CreatedAt))
	field("UPDATED", Timestamp(&p.UpdatedAt))
	if p.DeletedAt != nil {
		field("DELETED", StyleRed.Render(Timestamp(p.DeletedAt)))
	}

	right := Dim("no workflow")
	if p.Workflow != nil {
		right = FormatWorkflow(p.Workflow)
	}
	return RenderBox("", lipgloss.JoinHorizontal(lipgloss.Top, meta.String(), "    ", right))
}

// FormatStats renders project counts by status.
func FormatStats(stats *service.ProjectStats) string {
	statuses := make([]domain.ProjectStatus, 0, len(stats.ByStatus))
	for s := range stats.ByStatus {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []string{ProjectStatusPill(s), fmt.Sprintf("%d", stats.ByStatus[s])})
	}
	summary := fmt.Sprintf("%s %d   %s %d\n\n", Dim("total"), stats.Total, Dim("live"), stats.Live)
	return RenderBox("Project stats", summary+RenderTable([]string{"STATUS", "COUNT"}, rows))
}
