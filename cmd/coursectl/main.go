// Package main provides coursectl, the operator CLI for database migrations
// and admin accounts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/config"
	"github.com/qrcourses/backend/internal/auth"
	"github.com/qrcourses/backend/pkg/database"
	"github.com/qrcourses/backend/pkg/logger"
)

const (
	Version = "0.1.0"
	appName = "coursectl"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operate the course registration backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrations",
		Short: "List embedded migrations in apply order",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := database.Migrations()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded migrations to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), logLevel, func(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
				if err := database.Migrate(ctx, pool, log); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(createAdminCmd(&logLevel))
	return cmd
}

func createAdminCmd(logLevel *string) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password (or ADMIN_PASSWORD) are required")
			}
			return withPool(cmd.Context(), *logLevel, func(ctx context.Context, pool *pgxpool.Pool, _ *zap.Logger) error {
				admin, err := auth.CreateAdmin(ctx, auth.NewRepository(pool), username, password)
				if err != nil {
					return fmt.Errorf("create admin: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", admin.Username, admin.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (defaults to ADMIN_PASSWORD)")
	return cmd
}

func withPool(ctx context.Context, logLevel string, fn func(context.Context, *pgxpool.Pool, *zap.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logLevel, "console")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), 2, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool, log)
}
