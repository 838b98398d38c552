package formatter

import (
	"fmt"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/sweeper"
)

func FormatJobList(jobs []*domain.GenerationJob) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			TruncID(j.ID),
			string(j.Kind),
			orDash(j.Title),
			JobStatusPill(j.Status),
			fmt.Sprintf("%d/%d", j.PopulatedSections(), len(j.Sections)),
			Timestamp(&j.UpdatedAt),
			orDash(j.ErrorReason),
		})
	}
	return RenderTable([]string{"ID", "KIND", "TITLE", "STATUS", "SECTIONS", "UPDATED", "ERROR"}, rows)
}

// FormatSweepResult summarises one sweep pass rule by rule.
func FormatSweepResult(res sweeper.SweepResult) string {
	rows := make([][]string, 0, len(res.Rules))
	for _, r := range res.Rules {
		outcome := fmt.Sprintf("%d", r.Matched)
		if r.Err != nil {
			outcome = StyleRed.Render("error: " + r.Err.Error())
		}
		rows = append(rows, []string{string(r.Kind), r.Rule, JobStatusPill(r.Target), outcome})
	}
	summary := fmt.Sprintf("%s %s   %s %d   %s %d\n\n",
		Dim("cutoff"), Timestamp(&res.Cutoff),
		Dim("completed"), res.Completed(),
		Dim("failed"), res.Failed())
	return summary + RenderTable([]string{"KIND", "RULE", "TARGET", "MATCHED"}, rows)
}
