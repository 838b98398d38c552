package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexanderramin/ideaflow/internal/cli/formatter"
	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/spf13/cobra"
)

// resolveProjectID accepts a full project ID or an unambiguous prefix of one
// of the user's projects, deleted ones included.
func resolveProjectID(ctx context.Context, app *App, userID, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("project ID is required")
	}
	projects, err := app.Projects.List(ctx, userID, true)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, p := range projects {
		if p.ID == input {
			return p.ID, nil
		}
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p.ID)
		}
	}
	switch len(matches) {
	case 0:
		// Let the service decide between not found and forbidden.
		return input, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("project ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// projectArg resolves the acting user and the project named by args[0].
func projectArg(cmd *cobra.Command, app *App, args []string) (userID, projectID string, err error) {
	userID, err = currentUser(cmd)
	if err != nil {
		return "", "", err
	}
	projectID, err = resolveProjectID(cmd.Context(), app, userID, args[0])
	return userID, projectID, err
}

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(
		newProjectCreateCmd(app),
		newProjectListCmd(app),
		newProjectShowCmd(app),
		newProjectUpdateCmd(app),
		newProjectDeleteCmd(app),
		newProjectPurgeCmd(app),
		newProjectStatsCmd(app),
	)
	return cmd
}

func newProjectCreateCmd(app *App) *cobra.Command {
	var in service.CreateProjectInput
	var mode string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with the default workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser(cmd)
			if err != nil {
				return err
			}
			in.UserID = user
			in.Mode = domain.ProjectMode(mode)
			p, err := app.Projects.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			printf(cmd, "Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.IdeaID, "idea", "", "Idea ID the project realises")
	cmd.Flags().StringVar(&in.Name, "name", "", "Project name")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeDevelopment), "Project mode")
	cmd.Flags().StringVar(&in.WorkflowCategory, "category", "", "Workflow category")
	cmd.Flags().StringSliceVar(&in.AssignedAgents, "agent", nil, "Assigned agent (repeatable)")
	_ = cmd.MarkFlagRequired("idea")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser(cmd)
			if err != nil {
				return err
			}
			projects, err := app.Projects.List(cmd.Context(), user, all)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				render(cmd, "No projects found.")
				return nil
			}
			render(cmd, formatter.FormatProjectList(projects))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include deleted projects")
	return cmd
}

func newProjectShowCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a project and its workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			p, err := app.Projects.Get(cmd.Context(), user, id)
			if err != nil {
				return err
			}
			if asJSON {
				// The workflow is the portable part; stages are always an
				// ordered array.
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p.Workflow)
			}
			render(cmd, formatter.FormatProjectDetail(p))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the workflow as JSON")
	return cmd
}

func newProjectUpdateCmd(app *App) *cobra.Command {
	var name, status, idea, category string
	var agents []string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update project fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}

			var u domain.ProjectUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("status") {
				s := domain.ProjectStatus(status)
				u.Status = &s
			}
			if cmd.Flags().Changed("idea") {
				u.IdeaID = &idea
			}
			if cmd.Flags().Changed("category") {
				u.WorkflowCategory = &category
			}
			if cmd.Flags().Changed("agent") {
				u.AssignedAgents = &agents
			}

			p, err := app.Projects.Update(cmd.Context(), user, id, u)
			if err != nil {
				return err
			}
			printf(cmd, "Updated project %s (%s)\n", p.Name, p.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&status, "status", "", "Status (planning|in_progress|testing|completed|on_hold|cancelled)")
	cmd.Flags().StringVar(&idea, "idea", "", "Idea ID")
	cmd.Flags().StringVar(&category, "category", "", "Workflow category")
	cmd.Flags().StringSliceVar(&agents, "agent", nil, "Assigned agents, replacing the current list")
	return cmd
}

func newProjectDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Soft-delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			if err := app.Projects.Delete(cmd.Context(), user, id); err != nil {
				return err
			}
			printf(cmd, "Deleted project %s\n", id)
			return nil
		},
	}
}

func newProjectPurgeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "purge ID",
		Short: "Permanently remove a deleted project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			if err := app.Projects.Purge(cmd.Context(), user, id); err != nil {
				return err
			}
			printf(cmd, "Purged project %s\n", id)
			return nil
		},
	}
}

func newProjectStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count projects by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser(cmd)
			if err != nil {
				return err
			}
			stats, err := app.Projects.Stats(cmd.Context(), user)
			if err != nil {
				return err
			}
			render(cmd, formatter.FormatStats(stats))
			return nil
		},
	}
}
