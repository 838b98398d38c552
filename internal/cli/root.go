package cli

import (
	"fmt"

	"github.com/alexanderramin/ideaflow/internal/events"
	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/alexanderramin/ideaflow/internal/sweeper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// App holds everything the commands call into.
type App struct {
	Projects service.ProjectService
	Jobs     service.GenerationJobService
	Sweeper  *sweeper.Sweeper
	Relay    *events.Relay
	// DefaultUser is used when --user is not given.
	DefaultUser string
	// GlobalFlags were already consumed by configuration loading; the root
	// command declares them so they show in help and parse cleanly.
	GlobalFlags *pflag.FlagSet
}

// NewRootCmd creates the top-level "ideaflow" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "ideaflow",
		Short:         "Evolve ideas through staged workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("user", app.DefaultUser, "Acting user ID (env IDEAFLOW_USER)")
	if app.GlobalFlags != nil {
		root.PersistentFlags().AddFlagSet(app.GlobalFlags)
	}

	root.AddCommand(
		newProjectCmd(app),
		newWorkflowCmd(app),
		newArtifactCmd(app),
		newJobCmd(app),
		newSweepCmd(app),
		newWorkerCmd(app),
	)
	return root
}

func currentUser(cmd *cobra.Command) (string, error) {
	user, err := cmd.Flags().GetString("user")
	if err != nil {
		return "", err
	}
	if user == "" {
		return "", fmt.Errorf("no user: pass --user or set IDEAFLOW_USER")
	}
	return user, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func render(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}
