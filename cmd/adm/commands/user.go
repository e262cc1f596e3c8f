package commands

import (
	"fmt"

	"revisionaid/internal/services"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(env *Env) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the revision aid.

Available commands:
  create   - Create a student account and its parent login
  stats    - Show a student's stats`,
	}

	userCmd.AddCommand(createUserCmd(env))
	userCmd.AddCommand(userStatsCmd(env))

	return userCmd
}

func createUserCmd(env *Env) *cobra.Command {
	var req services.SignupRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a student account and its parent login",
		Long: `Create a student account with the same rules as the sign-up page.
Both passwords are prompted for without echo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var err error
			if req.UserPassword, err = readPassword(out, "student"); err != nil {
				return err
			}
			if req.ParentPassword, err = readPassword(out, "parent"); err != nil {
				return err
			}

			container, err := env.openContainer(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = container.Shutdown(ctx) }()

			userService, err := container.GetUserService()
			if err != nil {
				return err
			}
			user, err := userService.Signup(ctx, req)
			if err != nil {
				env.Logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"user_email": req.UserEmail})
				return err
			}

			fmt.Fprintf(out, "Created %s (parent login %s)\n", user.Email, user.ParentEmail)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.UserEmail, "email", "", "student email")
	cmd.Flags().StringVar(&req.UserName, "name", "", "student name")
	cmd.Flags().StringVar(&req.ParentEmail, "parent-email", "", "parent email")
	cmd.Flags().StringVar(&req.ParentName, "parent-name", "", "parent name")
	cmd.Flags().StringVar(&req.Course, "course", "", "course the student is revising for")
	for _, name := range []string{"email", "name", "parent-email", "parent-name"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func userStatsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [student-email]",
		Short: "Show a student's stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.openContainer(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = container.Shutdown(ctx) }()

			userService, err := container.GetUserService()
			if err != nil {
				return err
			}
			user, err := userService.GetUserByEmail(ctx, args[0])
			if err != nil {
				return err
			}

			statsService, err := container.GetStatsService()
			if err != nil {
				return err
			}
			stats, err := statsService.GetStats(ctx, user.Email)
			if err != nil {
				return err
			}

			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}
