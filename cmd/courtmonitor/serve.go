package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled subscription checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			logger.Info("court monitor starting", "version", version, "addr", cfg.Server.Addr)
			return application.Serve(ctx)
		},
	}
}
