package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/shiftlog/internal/app"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  `Starts the Shiftlog server, which serves the timer, time log and tracking APIs and runs background jobs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *options) error {
	// Config must load before the logger exists; the logger before anything else logs
	config, err := loadConfig(opts)
	if err != nil {
		startupLogger().Error().Strs("paths", opts.configFiles).Err(err).Msg("Failed to load configuration")
		return err
	}

	logger := common.InitLogger(config)
	common.PrintBanner(config, logger)

	logger.Info().
		Strs("config_files", opts.configFiles).
		Str("environment", config.Environment).
		Str("storage_type", config.Storage.Type).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return err
	}
	defer application.Close()

	srv := server.New(application)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("url", "http://"+srv.Addr()).
		Msg("Server ready - Press Ctrl+C to stop")

	if err := srv.Run(ctx, shutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("Server failed")
		return err
	}

	logger.Info().Msg("Server stopped")
	return nil
}
