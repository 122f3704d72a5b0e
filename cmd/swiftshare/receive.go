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

	"github.com/opd-ai/swiftshare/config"
)

func newReceiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Listen for incoming files",
		Long: `Listen on a TCP port and store each incoming file in the download
directory. An existing partial file is resumed. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runReceive(ctx, cmd)
		},
	}

	cmd.Flags().Uint16P("port", "p", config.DefaultReceiverPort, "TCP port to listen on")
	cmd.Flags().StringP("dir", "d", "", "directory to store received files")
	return cmd
}

func (a *app) runReceive(ctx context.Context, cmd *cobra.Command) error {
	engine, release, err := a.newEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	port := a.cfg.Receiver.Port
	if !engine.StartReceiver(port) {
		return fmt.Errorf("cannot listen on port %d", port)
	}

	logrus.WithFields(logrus.Fields{
		"function": "runReceive",
		"port":     engine.ReceiverPort(),
		"dir":      a.cfg.Receiver.DownloadDir,
	}).Info("Waiting for files")
	fmt.Fprintf(cmd.OutOrStdout(), "Receiving into %s on port %d (Ctrl+C to stop)\n",
		a.cfg.Receiver.DownloadDir, engine.ReceiverPort())

	view := newProgressView(cmd.ErrOrStderr(), "Receiving")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			view.finish()
			engine.Cancel()
			return nil
		case <-ticker.C:
			view.update(engine.Snapshot())
			if !engine.ReceiverRunning() {
				view.finish()
				return nil
			}
		}
	}
}
