// Package commands provides CLI commands for the admin tool
package commands

import (
	"fmt"

	"revisionaid/internal/config"
	"revisionaid/internal/database"
	contextutils "revisionaid/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(env *Env) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the revision aid.

Available commands:
  migrate   - Apply pending schema migrations
  seed      - Load the question bank into the catalogue
  check     - Verify the database is reachable`,
	}

	dbCmd.AddCommand(migrateCmd(env))
	dbCmd.AddCommand(seedCmd(env))
	dbCmd.AddCommand(checkCmd(env))

	return dbCmd
}

func migrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			manager := database.NewManager(env.Logger)
			if err := manager.RunMigrations(ctx, env.Config.Database); err != nil {
				return contextutils.WrapError(err, "migration failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied to %s\n", maskDatabaseURL(env.Config.Database.URL))
			return nil
		},
	}
}

func seedCmd(env *Env) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the question bank into the catalogue",
		Long: `Validate the question bank file and upsert every topic and question.

Existing topics and questions with the same IDs are updated in place.
Existing accounts get zero performance rows for any new topic or question;
their recorded answers are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := env.openContainer(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = container.Shutdown(ctx) }()

			bankService, err := container.GetQuestionBankService()
			if err != nil {
				return err
			}
			bank, err := bankService.LoadFile(path)
			if err != nil {
				return err
			}
			added, err := bankService.Seed(ctx, bank)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d topics and %d questions from %s (%d performance rows added)\n",
				len(bank.Topics), len(bank.Questions), path, added)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", defaultBankPath(env.Config), "question bank YAML file")
	return cmd
}

func checkCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the database is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := env.openContainer(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = container.Shutdown(ctx) }()

			if err := container.GetStore().Ping(ctx); err != nil {
				return contextutils.WrapError(err, "database ping failed")
			}
			n, err := container.GetStore().CountQuestions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s (%s), %d questions in the catalogue\n",
				maskDatabaseURL(env.Config.Database.URL), env.Config.Database.Driver, n)
			return nil
		},
	}
}

func defaultBankPath(cfg *config.Config) string {
	if cfg.Quiz.QuestionBankPath != "" {
		return cfg.Quiz.QuestionBankPath
	}
	return config.DefaultQuestionBankPath
}
