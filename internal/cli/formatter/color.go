package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// Header renders an upper-cased section title over a dim rule.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// ProjectStatusPill renders a project status with a glyph.
func ProjectStatusPill(status domain.ProjectStatus) string {
	switch status {
	case domain.ProjectStatusPlanning:
		return StyleBlue.Render("○ Planning")
	case domain.ProjectStatusInProgress:
		return StyleGreen.Render("● In Progress")
	case domain.ProjectStatusTesting:
		return StylePurple.Render("◐ Testing")
	case domain.ProjectStatusCompleted:
		return StyleDim.Render("✔ Completed")
	case domain.ProjectStatusOnHold:
		return StyleYellow.Render("‖ On Hold")
	case domain.ProjectStatusCancelled:
		return StyleDim.Render("⊘ Cancelled")
	case domain.ProjectStatusDeleted:
		return StyleRed.Render("✖ Deleted")
	default:
		return StyleDim.Render(string(status))
	}
}

func StageStatusPill(status domain.StageStatus) string {
	switch status {
	case domain.StagePending:
		return StyleDim.Render("○ pending")
	case domain.StageInProgress:
		return StyleGreen.Render("● in progress")
	case domain.StageCompleted:
		return StyleBlue.Render("✔ completed")
	default:
		return StyleDim.Render(string(status))
	}
}

func JobStatusPill(status domain.JobStatus) string {
	switch status {
	case domain.JobGenerating, domain.JobDraft:
		return StyleYellow.Render("● " + string(status))
	case domain.JobCompleted:
		return StyleGreen.Render("✔ completed")
	case domain.JobFailed:
		return StyleRed.Render("✖ failed")
	default:
		return StyleDim.Render(string(status))
	}
}
