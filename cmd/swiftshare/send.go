package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/swiftshare"
	"github.com/opd-ai/swiftshare/config"
	"github.com/opd-ai/swiftshare/journal"
	"github.com/opd-ai/swiftshare/limits"
	"github.com/opd-ai/swiftshare/transfer"
)

var errSendFailed = errors.New("send failed")

type sendFlags struct {
	ip   string
	port uint16
}

func newSendCmd(a *app) *cobra.Command {
	flags := &sendFlags{}

	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Send a file to a listening receiver",
		Long: `Connect to a receiver and stream one file to it. If the receiver already
holds part of the file, only the remainder is sent.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateSendArgs(args[0])
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runSend(ctx, cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.ip, "ip", "", "receiver IP address (required)")
	cmd.Flags().Uint16VarP(&flags.port, "port", "p", config.DefaultReceiverPort, "receiver TCP port")
	cmd.Flags().Uint32("chunk-size", limits.DefaultChunkSize, "maximum bytes per data frame")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}

// validateSendArgs ensures the path names a readable regular file.
func validateSendArgs(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

func (a *app) runSend(ctx context.Context, cmd *cobra.Command, path string, flags *sendFlags) error {
	engine, release, err := a.newEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	return sendWith(ctx, cmd, engine, path, flags)
}

func sendWith(ctx context.Context, cmd *cobra.Command, engine *swiftshare.Engine, path string, flags *sendFlags) error {
	if !engine.StartSender(path, flags.ip, flags.port) {
		return fmt.Errorf("%w: sender busy", errSendFailed)
	}

	view := newProgressView(cmd.ErrOrStderr(), "Sending")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for engine.SenderActive() {
		select {
		case <-ctx.Done():
			engine.Cancel()
			engine.Kill()
		case <-ticker.C:
			view.update(engine.Snapshot())
		}
	}
	view.finish()

	return reportSend(context.WithoutCancel(ctx), cmd, engine, engine.WaitSender())
}

// reportSend prints the verdict for the attempt described by res.
func reportSend(ctx context.Context, cmd *cobra.Command, engine *swiftshare.Engine, res transfer.Result) error {
	if res.ID == uuid.Nil {
		return fmt.Errorf("%w: no attempt ran", errSendFailed)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "reportSend",
		"file_name":   res.FileName,
		"outcome":     string(res.Outcome),
		"offset":      res.Offset,
		"transferred": res.Transferred,
	}).Info("Send attempt finished")

	if res.Outcome != transfer.OutcomeCompleted {
		return fmt.Errorf("%w: %s %s: %v", errSendFailed, res.Outcome, res.FileName, res.Err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %s (%d bytes, resumed at %d)\n", res.FileName, res.Size, res.Offset)
	if entry, ok := findEntry(ctx, engine, res.ID); ok && entry.Checksum != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "BLAKE2b-256 %s\n", entry.Checksum)
	}
	return nil
}

// findEntry waits briefly for the engine's asynchronous journal write of
// the attempt with the given ID.
func findEntry(ctx context.Context, engine *swiftshare.Engine, id uuid.UUID) (journal.Entry, bool) {
	deadline := time.Now().Add(swiftshare.DefaultJournalTimeout)
	for time.Now().Before(deadline) {
		entries, err := engine.Transfers(ctx, journal.DefaultCapacity)
		if err == nil {
			for _, e := range entries {
				if e.ID == id {
					return e, true
				}
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return journal.Entry{}, false
}
