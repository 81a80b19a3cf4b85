package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"CourtMonitor/internal/app"
	"CourtMonitor/internal/config"
	"CourtMonitor/internal/logging"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	cfg     config.Config
	logger  *slog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "courtmonitor",
		Short: "Court notice search, document analysis and subscription alerts",
		Long: `courtmonitor searches the public court notice board, downloads the documents
attached to matching filings, extracts structured facts with an AI service and
writes a combined narrative.

Example usage:
  courtmonitor serve                         # HTTP API and scheduled checks
  courtmonitor analyze "ACME d.o.o." -n 3    # one analysis run in the terminal
  courtmonitor subscribe "ACME d.o.o." ana@example.hr
  courtmonitor subscriptions                 # list active subscriptions
  courtmonitor check                         # one pass over all subscriptions`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $COURTMONITOR_CONFIG)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(newServeCmd(), newCheckCmd(), newAnalyzeCmd(), newSubscribeCmd(), newSubscriptionsCmd())
	return root
}

func execute() error {
	return newRootCmd().Execute()
}

func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		if err := os.Setenv("COURTMONITOR_CONFIG", cfgFile); err != nil {
			return fmt.Errorf("set config path: %w", err)
		}
	}
	cfg = config.Load()

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	// one-shot commands keep stdout for results
	if cmd.Name() == "serve" {
		logger = logging.New(level)
	} else {
		logger = logging.NewWithWriter(os.Stderr, level)
	}

	logger.Debug("configuration loaded",
		"addr", cfg.Server.Addr,
		"database", cfg.Database.Driver,
		"provider", cfg.Search.Provider,
		"locale", cfg.Pipeline.Locale,
	)
	return nil
}

func openApp(ctx context.Context) (*app.Application, error) {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialise: %w", err)
	}
	return application, nil
}
