package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ideaflow/internal/domain"
)

// FormatWorkflow lists stages in order, marking the current one.
func FormatWorkflow(w *domain.Workflow) string {
	var b strings.Builder
	title := "Workflow"
	if w.IsCustom {
		title += " (custom)"
	}
	b.WriteString(Header(title) + "\n")
	for _, s := range w.OrderedStages() {
		marker := "  "
		if s.ID == w.CurrentStageID {
			marker = StyleHeader.Render("▸") + " "
		}
		b.WriteString(fmt.Sprintf("%s%d. %s  %s", marker, s.OrderNumber, Bold(s.Name), StageStatusPill(s.Status)))
		if n := len(s.Artifacts); n > 0 {
			b.WriteString(Dim(fmt.Sprintf("  %d artifact(s)", n)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + RenderProgress(w.CompletionPercentage(), 20))
	return b.String()
}

// FormatStage renders one stage with its artifacts and expected outputs.
func FormatStage(s domain.Stage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s  %s\n", Bold(s.Name), Dim("("+s.ID+")"), StageStatusPill(s.Status)))
	if s.Description != "" {
		b.WriteString(Dim(s.Description) + "\n")
	}
	b.WriteString(fmt.Sprintf("%s %s   %s %s\n", Dim("started"), Timestamp(s.StartedAt), Dim("completed"), Timestamp(s.CompletedAt)))
	if len(s.Artifacts) > 0 {
		rows := make([][]string, 0, len(s.Artifacts))
		for _, a := range s.Artifacts {
			rows = append(rows, []string{TruncID(a.ID), a.Type, a.Name, orDash(a.Source), fmt.Sprintf("%d", a.Tokens)})
		}
		b.WriteString("\n" + RenderTable([]string{"ID", "TYPE", "NAME", "SOURCE", "TOKENS"}, rows))
	}
	if len(s.ExpectedOutputs) > 0 {
		names := make([]string, 0, len(s.ExpectedOutputs))
		for _, o := range s.ExpectedOutputs {
			names = append(names, o.Name)
		}
		b.WriteString("\n" + Dim("expects: ") + strings.Join(names, ", ") + "\n")
	}
	return b.String()
}

// FormatDropped warns about artifacts a stage replacement discarded.
func FormatDropped(dropped []domain.DroppedArtifact) string {
	if len(dropped) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(StyleYellow.Render(fmt.Sprintf("%d artifact(s) were not carried over:", len(dropped))) + "\n")
	for _, d := range dropped {
		b.WriteString(fmt.Sprintf("  - %s %s %s\n", d.StageID, Dim(d.ArtifactID), d.Name))
	}
	return b.String()
}
