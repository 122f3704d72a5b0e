package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/swiftshare/api"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API",
		Long: `Run an engine behind an HTTP API. Clients start receivers and senders,
poll or stream progress, cancel, and list past transfers:

  POST /receiver      {"port": 8765}
  POST /sender        {"path": "/data/report.pdf", "ip": "192.168.1.20", "port": 8765}
  POST /cancel
  GET  /progress
  GET  /transfers?limit=20
  GET  /ws/progress   (websocket)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, cmd)
		},
	}

	cmd.Flags().String("listen", "", "API listen address (default from config)")
	cmd.Flags().StringP("dir", "d", "", "directory to store received files")
	cmd.Flags().String("redis", "", "redis address for the transfer journal")
	return cmd
}

func (a *app) runServe(ctx context.Context, cmd *cobra.Command) error {
	engine, release, err := a.newEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	srv := api.NewServer(engine, a.cfg.API.ProgressInterval)
	if err := srv.Start(a.cfg.API.Listen); err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.API.Listen, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "API listening on http://%s\n", srv.Addr())

	select {
	case <-ctx.Done():
	case err := <-srv.Done():
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "runServe",
			"error":    err.Error(),
		}).Warn("API shutdown incomplete")
	}
	return nil
}
