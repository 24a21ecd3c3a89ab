package main

import (
	"fmt"
	"os"

	"wallet-service/config"
	"wallet-service/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Running it without a subcommand starts the server.
func newRootCmd() *cobra.Command {
	var configPath string

	// loadEnv reads configuration and builds the process logger.
	loadEnv := func() (*config.Config, zerolog.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty, cfg.App.Name), nil
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadEnv()
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg, log)
	}

	rootCmd := &cobra.Command{
		Use:           "wallet-api",
		Short:         "Wallet balance service",
		Long:          `HTTP service that creates wallets and applies deposits and withdrawals under per-wallet row locks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: ./config.yaml or ./config/config.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  serve,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}
	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			return runMigrations(cfg.Database, log, migrateUp)
		},
	}
	migrateDownCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			return runMigrations(cfg.Database, log, migrateDown)
		},
	}

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)
	return rootCmd
}
