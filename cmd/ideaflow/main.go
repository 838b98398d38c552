package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alexanderramin/ideaflow/internal/cli"
	"github.com/alexanderramin/ideaflow/internal/config"
	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/alexanderramin/ideaflow/internal/events"
	"github.com/alexanderramin/ideaflow/internal/logging"
	"github.com/alexanderramin/ideaflow/internal/repository"
	"github.com/alexanderramin/ideaflow/internal/service"
	"github.com/alexanderramin/ideaflow/internal/sweeper"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	flags := config.NewFlagSet()
	// Errors such as --help are reported again by cobra.
	_ = flags.Parse(os.Args[1:])
	v := config.NewViper()
	if err := config.BindFlags(v, flags); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx := context.Background()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Only job, sweep and worker reach the job store, so project commands
	// never dial Postgres or run its migrations.
	jobRepo := repository.NewLazyGenerationJobRepo(func(ctx context.Context) (repository.GenerationJobRepo, io.Closer, error) {
		return openJobStore(ctx, cfg, database)
	})
	defer jobRepo.Close()

	projectRepo := repository.NewSQLiteProjectRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)
	observer := service.WithObserver(service.NewLogUseCaseObserver(logger))

	app := &cli.App{
		Projects: service.NewProjectService(projectRepo, uow, observer),
		Jobs:     service.NewGenerationJobService(jobRepo, projectRepo, observer),
		Sweeper: sweeper.New(jobRepo, sweeper.Config{
			StaleAfter:     cfg.StaleAfter(),
			Interval:       cfg.SweepInterval(),
			FailStalePlans: cfg.Sweep.FailStalePlans,
			Enabled:        cfg.SweeperEnabled(),
		}, sweeper.WithLogger(logger)),
		Relay: events.NewRelay(
			repository.NewSQLiteOutboxRepo(database),
			events.LogSink{Logger: logger},
			events.RelayConfig{Interval: cfg.RelayInterval(), BatchSize: cfg.Relay.BatchSize},
			events.WithLogger(logger),
		),
		DefaultUser: cfg.User,
		GlobalFlags: flags,
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openJobStore picks the generation-job backend. The sqlite store shares the
// project database; memory gets its own throwaway database.
func openJobStore(ctx context.Context, cfg *config.Config, database *sql.DB) (repository.GenerationJobRepo, io.Closer, error) {
	switch cfg.Jobs.Store {
	case config.StorePostgres:
		pool, err := db.ConnectPostgres(ctx, cfg.Jobs.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresGenerationJobRepo(pool), closerFunc(func() error { pool.Close(); return nil }), nil
	case config.StoreMemory:
		mem, err := db.OpenDB(db.MemoryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening in-memory job store: %w", err)
		}
		return repository.NewSQLiteGenerationJobRepo(mem), mem, nil
	default:
		return repository.NewSQLiteGenerationJobRepo(database), closerFunc(func() error { return nil }), nil
	}
}
