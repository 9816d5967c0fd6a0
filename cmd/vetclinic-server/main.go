package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vetclinic/vetclinic/internal/config"
	"github.com/vetclinic/vetclinic/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vetclinic-server",
		Short: "Veterinary clinic scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			noWorker, _ := cmd.Flags().GetBool("no-worker")
			return runServer(!noWorker)
		},
	}
	cmd.Flags().Bool("no-worker", false, "Do not run the reminder worker in this process")
	return cmd
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run only the reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReminders()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(os.Stdout, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func openMigrator(ctx context.Context, cmd *cobra.Command) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, dir), pool.Close, nil
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// warnDevAuth flags the development auth mode, which runs every
// unauthenticated /api/v1 request as staff.
func warnDevAuth(cfg *config.Config, logger zerolog.Logger) {
	if !cfg.IsDev() {
		return
	}
	logger.Warn().Str("env", cfg.Env).
		Msg("WARNING: dev auth enabled, unauthenticated requests are treated as staff. Set ENV=production to require JWTs")
}

// setup loads and validates config, connects to the database and wires the
// application. The caller owns the returned cleanup.
func setup(ctx context.Context) (*app, *config.Config, zerolog.Logger, func(), error) {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, logger, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, logger, nil, fmt.Errorf("invalid config: %w", err)
	}
	warnDevAuth(cfg, logger)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, logger, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("connected to database")

	a, err := buildApp(ctx, cfg, pool, logger, newRegistry())
	if err != nil {
		pool.Close()
		return nil, nil, logger, nil, err
	}
	cleanup := func() {
		a.Close()
		pool.Close()
	}
	return a, cfg, logger, cleanup, nil
}

func runServer(withWorker bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cfg, logger, cleanup, err := setup(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer cleanup()

	workerDone := make(chan struct{})
	if withWorker {
		go func() {
			defer close(workerDone)
			a.worker.Run(ctx)
		}()
	} else {
		close(workerDone)
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	<-workerDone
	logger.Info().Msg("server stopped")
	return nil
}

func runReminders() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cfg, logger, cleanup, err := setup(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer cleanup()

	logger.Info().Dur("interval", cfg.ReminderEvery).Msg("starting reminder worker")
	a.worker.Run(ctx)
	logger.Info().Msg("reminder worker stopped")
	return nil
}
