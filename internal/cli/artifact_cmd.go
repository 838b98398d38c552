package cli

import (
	"fmt"
	"os"

	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/spf13/cobra"
)

func newArtifactCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Attach or remove stage artifacts",
	}
	cmd.AddCommand(newArtifactAddCmd(app), newArtifactRemoveCmd(app))
	return cmd
}

func newArtifactAddCmd(app *App) *cobra.Command {
	var in service.AddArtifactInput
	var file string

	cmd := &cobra.Command{
		Use:   "add PROJECT STAGE",
		Short: "Attach an artifact to a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			if file != "" {
				if cmd.Flags().Changed("content") {
					return fmt.Errorf("--content and --file are mutually exclusive")
				}
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading artifact content: %w", err)
				}
				in.Content = string(data)
			}
			in.StageID = args[1]

			a, err := app.Projects.AddArtifact(cmd.Context(), user, id, in)
			if err != nil {
				return err
			}
			printf(cmd, "Added artifact %s (%s) to %s\n", a.Name, a.ID, in.StageID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.ID, "id", "", "Artifact ID (generated when empty)")
	cmd.Flags().StringVar(&in.Type, "type", "", "Artifact type")
	cmd.Flags().StringVar(&in.Name, "name", "", "Artifact name")
	cmd.Flags().StringVar(&in.Content, "content", "", "Inline content")
	cmd.Flags().StringVar(&file, "file", "", "Read content from a file")
	cmd.Flags().StringVar(&in.Source, "source", "user", "Source (ai|user|import)")
	cmd.Flags().IntVar(&in.Tokens, "tokens", 0, "Token count")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newArtifactRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm PROJECT STAGE ARTIFACT",
		Aliases: []string{"remove"},
		Short:   "Remove an artifact from a stage",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, id, err := projectArg(cmd, app, args)
			if err != nil {
				return err
			}
			removed, err := app.Projects.RemoveArtifact(cmd.Context(), user, id, args[1], args[2])
			if err != nil {
				return err
			}
			if !removed {
				printf(cmd, "No artifact %s on %s\n", args[2], args[1])
				return nil
			}
			printf(cmd, "Removed artifact %s\n", args[2])
			return nil
		},
	}
}
