package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/ideaflow/internal/cli/formatter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Resolve stale generation jobs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Sweeper == nil || !app.Sweeper.Enabled() {
				render(cmd, "Sweeper is disabled for this job store.")
				return nil
			}
			res, err := app.Sweeper.Sweep(cmd.Context())
			render(cmd, formatter.FormatSweepResult(res))
			return err
		},
	}
}

func newWorkerCmd(app *App) *cobra.Command {
	var relayOnly bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the stale-job sweeper and event relay until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorkers(ctx, app, relayOnly)
		},
	}

	cmd.Flags().BoolVar(&relayOnly, "relay-only", false, "Only publish outbox events")
	return cmd
}

// runWorkers blocks until ctx ends or a loop fails; a failing loop cancels
// the others.
func runWorkers(ctx context.Context, app *App, relayOnly bool) error {
	g, ctx := errgroup.WithContext(ctx)
	if app.Sweeper != nil && !relayOnly {
		g.Go(func() error { return app.Sweeper.Run(ctx) })
	}
	if app.Relay != nil {
		g.Go(func() error { return app.Relay.Run(ctx) })
	}
	return g.Wait()
}
