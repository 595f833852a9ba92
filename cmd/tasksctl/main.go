package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tasktracker/internal/db"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

// cliEnv es el subconjunto de configuracion que necesitan los comandos de operador.
type cliEnv struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "tasksctl",
		Short:         "Operator commands for the task tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("database-url", "", "Postgres URL (defaults to DATABASE_URL)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(pruneVacantCmd())
	rootCmd.AddCommand(auditRelationshipsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func databaseURL(cmd *cobra.Command) (string, error) {
	if url, _ := cmd.Flags().GetString("database-url"); url != "" {
		return url, nil
	}
	var cfg cliEnv
	if err := env.Parse(&cfg); err != nil {
		return "", fmt.Errorf("database url: %w", err)
	}
	return cfg.DatabaseURL, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			if err := db.Migrate(cmd.Context(), url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			return db.Status(cmd.Context(), url)
		},
	})
	return cmd
}

func pruneVacantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-vacant",
		Short: "Delete tasks that have no participants left",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepos(cmd, func(ctx context.Context, _ repository.IdentityRepository, tasks repository.TaskRepository) error {
				svc := service.NewTaskService(zap.NewNop(), tasks, nil, nil)
				n, err := svc.PruneVacant(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d vacant tasks\n", n)
				return nil
			})
		},
	}
}

func auditRelationshipsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit-relationships",
		Short: "Report relationship entries that are missing their counterpart",
		Long: `Scans every identity and lists relationship entries whose peer has no
entry pointing back, or whose peer no longer exists. Nothing is modified.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withRepos(cmd, func(ctx context.Context, identities repository.IdentityRepository, _ repository.TaskRepository) error {
				graph := service.NewRelationshipGraph(zap.NewNop(), identities)
				return runAudit(ctx, graph, cmd.OutOrStdout(), asJSON)
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output findings as JSON")
	return cmd
}

func withRepos(cmd *cobra.Command, fn func(context.Context, repository.IdentityRepository, repository.TaskRepository) error) error {
	url, err := databaseURL(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, url, 2)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	return fn(ctx, repository.NewPgIdentityRepository(pool), repository.NewPgTaskRepository(pool))
}
