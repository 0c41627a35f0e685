package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/nutriscan/internal/web"
)

func newServeCmd(configFile *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and MCP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configFile, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	return cmd
}

func runServe(ctx context.Context, configFile, addr string) error {
	a, err := newApp(ctx, configFile, true)
	if err != nil {
		return err
	}
	defer a.close()

	if addr == "" {
		addr = a.cfg.ListenAddr
	}
	server := web.NewServer(a.analysis, a.history, a.media, a.cfg.MaxUploadBytes, a.logger)
	if err := server.ListenAndServe(ctx, addr); err != nil {
		a.logger.Error("server error", "error", err)
		return err
	}
	return nil
}
