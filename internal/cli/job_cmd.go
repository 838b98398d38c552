package cli

import (
	"github.com/alexanderramin/ideaflow/internal/cli/formatter"
	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/spf13/cobra"
)

func newJobCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Record report and business-plan generation jobs",
	}
	cmd.AddCommand(newJobCreateCmd(app), newJobSectionCmd(app), newJobListCmd(app))
	return cmd
}

func newJobCreateCmd(app *App) *cobra.Command {
	var project, kind, title string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a generation job for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, []string{project})
			if err != nil {
				return err
			}
			job, err := app.Jobs.Create(cmd.Context(), service.CreateJobInput{
				UserID:    user,
				ProjectID: id,
				Kind:      domain.JobKind(kind),
				Title:     title,
			})
			if err != nil {
				return err
			}
			printf(cmd, "Created %s job %s (%s)\n", job.Kind, job.ID, job.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or prefix")
	cmd.Flags().StringVar(&kind, "kind", string(domain.JobReport), "Job kind (report|business_plan)")
	cmd.Flags().StringVar(&title, "title", "", "Job title")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newJobSectionCmd(app *App) *cobra.Command {
	var in service.SectionInput

	cmd := &cobra.Command{
		Use:   "section JOB",
		Short: "Add or replace a section of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser(cmd)
			if err != nil {
				return err
			}
			job, err := app.Jobs.AppendSection(cmd.Context(), user, args[0], in)
			if err != nil {
				return err
			}
			printf(cmd, "Job %s has %d/%d populated sections\n",
				formatter.TruncID(job.ID), job.PopulatedSections(), len(job.Sections))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Key, "key", "", "Section key")
	cmd.Flags().StringVar(&in.Title, "title", "", "Section title")
	cmd.Flags().StringVar(&in.Content, "content", "", "Section content")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newJobListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list PROJECT",
		Short: "List a project's generation jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			jobs, err := app.Jobs.ListByProject(cmd.Context(), user, id)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				render(cmd, "No jobs found.")
				return nil
			}
			render(cmd, formatter.FormatJobList(jobs))
			return nil
		},
	}
}
