package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/opd-ai/swiftshare"
	"github.com/opd-ai/swiftshare/config"
	"github.com/opd-ai/swiftshare/journal"
)

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-json":   "log.json",
	"port":       "receiver.port",
	"dir":        "receiver.download_dir",
	"chunk-size": "transfer.chunk_size",
	"listen":     "api.listen",
	"redis":      "redis.addr",
}

// app carries state shared by every subcommand.
type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "swiftshare",
		Short: "SwiftShare - point-to-point file transfer over TCP",
		Long: `SwiftShare moves one file at a time between two machines over a plain
TCP connection, resuming interrupted transfers from where the receiver
left off.

Usage:
  Receive files:  swiftshare receive --port 8765 --dir ~/Downloads/SwiftShare
  Send a file:    swiftshare send report.pdf --ip 192.168.1.20 --port 8765
  Control API:    swiftshare serve --listen 127.0.0.1:8766

Settings are read from $HOME/.swiftshare.yaml and SWIFTSHARE_* variables;
flags take precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.swiftshare.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "emit logs as JSON")

	root.AddCommand(newReceiveCmd(a), newSendCmd(a), newServeCmd(a))
	return root
}

// init loads configuration with the invoked command's flags bound on top.
func (a *app) init(cmd *cobra.Command) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return fmt.Errorf("bind flags: %w", bindErr)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return err
	}

	a.cfg = cfg
	logrus.WithFields(logrus.Fields{
		"function": "app.init",
		"command":  cmd.Name(),
	}).Debug("Configuration loaded")
	return nil
}

// newEngine builds an engine and its journal from the loaded configuration.
// The returned release func kills the engine and closes the journal.
func (a *app) newEngine(ctx context.Context) (*swiftshare.Engine, func(), error) {
	j, err := a.cfg.OpenJournal(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := a.cfg.EngineOptions()
	opts.Journal = j

	engine, err := swiftshare.New(opts)
	if err != nil {
		closeJournal(j)
		return nil, nil, err
	}
	return engine, func() {
		engine.Kill()
		closeJournal(j)
	}, nil
}

func closeJournal(j journal.Journal) {
	if c, ok := j.(io.Closer); ok {
		c.Close()
	}
}
