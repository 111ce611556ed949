package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rentalhub/internal/app"
	"rentalhub/internal/config"
	"rentalhub/internal/logger"
)

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	if path == "" {
		path = os.Getenv("RENTALHUB_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and chat websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, cfg, log)
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return app.Migrate(cmd.Context(), cfg, log)
		},
	}
}

func NewRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "rentalhub",
		Short:        "Rental marketplace chat backend",
		Example:      "rentalhub serve --config config/config.yaml",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default $RENTALHUB_CONFIG or "+config.DefaultPath+")")

	cmd.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
	)
	return cmd
}

func main() {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
