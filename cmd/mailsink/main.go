package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "mailsink/docs"
	"mailsink/internal/config"
	"mailsink/internal/logger"
	"mailsink/pkg/logging"
)

var (
	configFile string
)

// @title           Mailsink API
// @version         1.0
// @description     Query, delete and watch mails captured by the disposable SMTP sink

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:1080
// @BasePath  /api

// @schemes   http

func main() {
	serve := serveCmd()

	rootCmd := &cobra.Command{
		Use:   "mailsink",
		Short: "Disposable SMTP sink with an HTTP query API",
		Long:  "mailsink accepts every SMTP delivery, keeps the most recent ones in memory and serves them over HTTP, WebSocket and SSE",
		RunE:  serve.RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (optional)")
	addServeFlags(rootCmd)

	rootCmd.AddCommand(serve)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("smtp-port", 2525, "SMTP listen port")
	cmd.Flags().Int("http-port", 1080, "HTTP listen port")
	cmd.Flags().Int("max", 100, "Maximum number of mails kept in memory")
	cmd.Flags().StringSlice("whitelist", nil, "Accepted sender addresses or @domain suffixes (default: accept all)")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SMTP sink and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
			}

			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				earlyLog.Error("Failed to load config: %v", err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting mailsink",
				"smtp_port", cfg.SMTP.Port,
				"http_port", cfg.Server.Port,
				"max", cfg.Store.Max,
			)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return fmt.Errorf("initialize: %w", err)
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
	addServeFlags(cmd)
	return cmd
}
