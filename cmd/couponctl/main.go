package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"couponme/api/internal/config"
	"couponme/api/internal/database"
	"couponme/api/internal/log"
	"couponme/api/internal/repository"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
	timeout       time.Duration

	rootCmd = &cobra.Command{
		Use:   "couponctl",
		Short: "Maintenance commands for the CouponMe API",
		Long: `couponctl prepares the CouponMe PostgreSQL database. It reads the same
configuration as the API server (config.yaml and COUPONME_* variables).`,
		SilenceUsage: true,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, cfg *config.AppConfig, pool *pgxpool.Pool) error {
				if err := database.Migrate(ctx, pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			})
		},
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Insert the default categories and the bootstrap administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, cfg *config.AppConfig, pool *pgxpool.Pool) error {
				created, err := database.SeedCategoryList(ctx, repository.NewCategoryRepository(pool))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "categories created: %d\n", created)

				if cfg.Bootstrap.AdminEmail == "" {
					return nil
				}
				admin, err := database.EnsureAdmin(ctx, repository.NewUserRepository(pool), cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin ready: %s\n", admin.Email)
				return nil
			})
		},
	}

	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator or promote an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, cfg *config.AppConfig, pool *pgxpool.Pool) error {
				admin, err := database.EnsureAdmin(ctx, repository.NewUserRepository(pool), adminEmail, adminPassword, adminName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin ready: %s (%s)\n", admin.Email, admin.ID)
				return nil
			})
		},
	}
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Overall command timeout")

	createAdminCmd.Flags().StringVarP(&adminEmail, "email", "e", "", "Administrator email")
	createAdminCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "Administrator password")
	createAdminCmd.Flags().StringVarP(&adminName, "name", "n", "Administrator", "Display name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(migrateCmd, seedCmd, createAdminCmd)
}

func withPool(parent context.Context, fn func(ctx context.Context, cfg *config.AppConfig, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Store != config.StoreDriverPostgres {
		return fmt.Errorf("couponctl requires the %q store, got %q", config.StoreDriverPostgres, cfg.Store)
	}

	logger := log.New(cfg.Environment, cfg.Log)

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := fn(ctx, cfg, pool); err != nil {
		logger.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
