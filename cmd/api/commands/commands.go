package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/taskmaster/tasks/internal/adapters/importer"
	"github.com/taskmaster/tasks/internal/adapters/repository"
	"github.com/taskmaster/tasks/internal/application/services"
	"github.com/taskmaster/tasks/internal/infrastructure/config"
	"github.com/taskmaster/tasks/internal/infrastructure/database"
	"github.com/taskmaster/tasks/internal/infrastructure/logger"
	"github.com/taskmaster/tasks/internal/infrastructure/server"
)

// Build information, set with -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "development"
	BuildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

// NewRootCommand assembles the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tasks",
		Short:         "Task API server",
		Long:          `Task API exposes create, read, update, partial update and delete operations for tasks over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewTokenCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Task API server",
		Long:  "Start the Task API server with all configured routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	for _, direction := range []string{"up", "down"} {
		direction := direction
		cmd := &cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Run %s migrations", direction),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps, _ := cmd.Flags().GetInt("steps")
				return runMigration(cmd, direction, steps)
			},
		}
		cmd.Flags().Int("steps", 0, "Number of migrations to apply (0 applies all)")
		migrateCmd.AddCommand(cmd)
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	})

	return migrateCmd
}

// NewTokenCommand creates the token command
func NewTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			return issueToken(cmd, subject, ttl)
		},
	}

	tokenCmd.Flags().String("subject", "", "Token subject (required)")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime, defaults to jwt.expires_in")
	_ = tokenCmd.MarkFlagRequired("subject")

	return tokenCmd
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Create tasks from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return importTasks(cmd, file)
		},
	}

	importCmd.Flags().StringP("file", "f", "", "YAML file with a top-level tasks list (required)")
	_ = importCmd.MarkFlagRequired("file")

	return importCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Task API version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task API %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		appLogger.Errorw("Failed to connect to database", "error", err)
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate && db.Driver() == config.DriverPostgres {
		changed, err := db.Migrate("up", 0)
		if err != nil {
			appLogger.Errorw("Automatic migration failed", "error", err)
			return err
		}
		appLogger.Infow("Automatic migration finished", "changed", changed)
	}

	srv, err := server.New(cfg, db, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	appLogger.Infow("Starting Task API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"driver", cfg.Database.Driver,
		"auth_enabled", cfg.Security.AuthEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Errorw("Server failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
		return err
	}

	appLogger.Infow("Server stopped")
	return <-errCh
}

func runMigration(cmd *cobra.Command, direction string, steps int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	changed, err := db.Migrate(direction, steps)
	if err != nil {
		return err
	}

	if changed {
		fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
	}
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
	return nil
}

func issueToken(cmd *cobra.Command, subject string, ttl time.Duration) error {
	if subject == "" {
		return services.ErrEmptySubject
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	jwtConfig := cfg.JWT
	if ttl > 0 {
		jwtConfig.ExpiresIn = ttl
	}

	token, err := services.NewAuthService(jwtConfig).GenerateToken(subject)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func importTasks(cmd *cobra.Command, path string) error {
	if path == "" {
		return errors.New("--file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	// The whole file is imported in one transaction.
	var n int
	err = db.WithTransaction(cmd.Context(), func(tx *sqlx.Tx) error {
		taskService := services.NewTaskService(repository.NewTaskRepository(tx), appLogger)
		var importErr error
		n, importErr = importer.Import(cmd.Context(), taskService, f)
		return importErr
	})
	if err != nil {
		return fmt.Errorf("import rolled back: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", n)
	return nil
}
