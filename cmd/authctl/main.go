package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/redmonkez12/go-phone-auth/cmd/authctl/ui"
	"github.com/redmonkez12/go-phone-auth/internal/config"
	"github.com/redmonkez12/go-phone-auth/internal/database"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/store"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "authctl",
		Short: "Operate the phone auth service",
		Long:  "Administrative commands for the phone auth service: database migrations and account roles.",
	}

	// migrate command group
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  withDB(database.Migrate, "migrations applied"),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE:  withDB(database.MigrateDown, "latest migration rolled back"),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print migration status",
			RunE:  withDB(database.MigrationStatus, ""),
		},
	)

	setRoleCmd := &cobra.Command{
		Use:   "set-role <email> <standard|admin>",
		Short: "Change an account's role and sign it out everywhere",
		Args:  cobra.ExactArgs(2),
		RunE:  runSetRole,
	}
	setRoleCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	rootCmd.AddCommand(migrateCmd, setRoleCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDB runs a migration step against the configured database
func withDB(step func(ctx context.Context, db *sql.DB) error, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := cmd.Context()
		sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
		if err != nil {
			ui.PrintError(err.Error())
			return err
		}
		defer sqlDB.Close()

		if err := step(ctx, sqlDB); err != nil {
			ui.PrintError(err.Error())
			return err
		}

		if done != "" {
			ui.PrintSuccess(done)
		}
		return nil
	}
}

func runSetRole(cmd *cobra.Command, args []string) error {
	email, role := args[0], user.Role(args[1])
	yes, _ := cmd.Flags().GetBool("yes")

	if !role.Valid() {
		err := fmt.Errorf("%w: %q (want standard or admin)", user.ErrInvalidRole, role)
		ui.PrintError(err.Error())
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(true, cfg.Server.LogLevel)

	if !yes {
		ui.PrintTitle("Change account role")
		ok, err := ui.ConfirmRoleChange(email, role)
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	ctx := cmd.Context()
	sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}
	defer sqlDB.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	policy := store.Policy{Timeout: cfg.Store.Timeout, MaxRetries: cfg.Store.MaxRetries}
	sessions := session.NewManager(session.NewRedisStore(redisClient, policy), cfg.Auth.SessionDuration, logger)
	admin := user.NewAdmin(user.NewRepository(database.NewBunDB(sqlDB), policy), sessions, logger)

	u, err := admin.SetRoleByEmail(ctx, email, role)
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}

	ui.PrintRoleChanged(u)
	return nil
}
