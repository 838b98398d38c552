package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/ideaflow/internal/cli/formatter"
	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// stagesFile is the on-disk shape accepted by "workflow customize".
type stagesFile struct {
	Stages []stageEntry `yaml:"stages"`
}

type stageEntry struct {
	ID              string                  `yaml:"id"`
	Name            string                  `yaml:"name"`
	Description     string                  `yaml:"description"`
	Status          string                  `yaml:"status"`
	ExpectedOutputs []domain.ExpectedOutput `yaml:"expected_outputs"`
}

func parseStagesFile(data []byte) ([]domain.StageSpec, error) {
	var f stagesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing stages file: %w", err)
	}
	specs := make([]domain.StageSpec, 0, len(f.Stages))
	for _, e := range f.Stages {
		specs = append(specs, domain.StageSpec{
			ID:              e.ID,
			Name:            e.Name,
			Description:     e.Description,
			Status:          domain.StageStatus(e.Status),
			ExpectedOutputs: e.ExpectedOutputs,
		})
	}
	return specs, nil
}

// carryArtifacts copies the current artifacts of every stage whose ID
// survives the replacement.
func carryArtifacts(w *domain.Workflow, specs []domain.StageSpec) {
	if w == nil {
		return
	}
	for i := range specs {
		if s, err := w.Stage(specs[i].ID); err == nil {
			specs[i].Artifacts = append([]domain.Artifact(nil), s.Artifacts...)
		}
	}
}

func newWorkflowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wf"},
		Short:   "Move a project through its stages",
	}
	cmd.AddCommand(
		newStageOpCmd(app, "advance", "Complete the current stage and start the next one", app.Projects.AdvanceStage),
		newStageOpCmd(app, "start", "Start the current stage", app.Projects.StartCurrentStage),
		newStageOpCmd(app, "complete", "Complete the current stage", app.Projects.CompleteCurrentStage),
		newWorkflowJumpCmd(app),
		newWorkflowStageCmd(app),
		newWorkflowCustomizeCmd(app),
	)
	return cmd
}

type stageOp func(ctx context.Context, userID, id string) (*service.StageResult, error)

func newStageOpCmd(app *App, use, short string, op stageOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PROJECT",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			res, err := op(cmd.Context(), user, id)
			if err != nil {
				return err
			}
			printStageResult(cmd, res)
			return nil
		},
	}
}

func newWorkflowJumpCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "jump PROJECT STAGE",
		Short: "Make STAGE current and start it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			res, err := app.Projects.JumpToStage(cmd.Context(), user, id, args[1])
			if err != nil {
				return err
			}
			printStageResult(cmd, res)
			return nil
		},
	}
}

func newWorkflowStageCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stage PROJECT [STAGE]",
		Short: "Show one stage, the current one by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			p, err := app.Projects.Get(cmd.Context(), user, id)
			if err != nil {
				return err
			}
			if p.Workflow == nil {
				return domain.ErrNoWorkflow
			}
			var stage *domain.Stage
			if len(args) == 2 {
				stage, err = p.Workflow.Stage(args[1])
			} else {
				stage, err = p.Workflow.CurrentStage()
			}
			if err != nil {
				return err
			}
			render(cmd, formatter.FormatStage(*stage))
			return nil
		},
	}
}

func newWorkflowCustomizeCmd(app *App) *cobra.Command {
	var file string
	var keep bool

	cmd := &cobra.Command{
		Use:   "customize PROJECT",
		Short: "Replace the stage list from a YAML file",
		Long: `Replace every stage of the project's workflow with the stages listed
in a YAML file:

  stages:
    - id: research
      name: Research
      expected_outputs:
        - {type: notes, name: Notes}

Artifacts are discarded unless --keep-artifacts is given, in which case
stages whose ID survives keep theirs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading stages file: %w", err)
			}
			specs, err := parseStagesFile(data)
			if err != nil {
				return err
			}
			if keep {
				p, err := app.Projects.Get(cmd.Context(), user, id)
				if err != nil {
					return err
				}
				carryArtifacts(p.Workflow, specs)
			}

			res, err := app.Projects.CustomizeWorkflow(cmd.Context(), user, id, specs)
			if err != nil {
				return err
			}
			render(cmd, formatter.FormatWorkflow(res.Project.Workflow))
			if out := formatter.FormatDropped(res.Dropped); out != "" {
				render(cmd, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with the new stages")
	cmd.Flags().BoolVar(&keep, "keep-artifacts", false, "Carry artifacts over for stages that keep their ID")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printStageResult(cmd *cobra.Command, res *service.StageResult) {
	printf(cmd, "%s is %s\n", res.Stage.Name, res.Stage.Status)
	if res.Project.Workflow != nil {
		render(cmd, formatter.FormatWorkflow(res.Project.Workflow))
	}
}
