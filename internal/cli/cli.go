// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/config"
	"github.com/jeranaias/auditchat/internal/logging"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootOptions carries global flags and the state built from them.
type rootOptions struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
	level  zap.AtomicLevel
}

// loadConfig reads --config, or the default config location.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFromPath(o.configPath)
	}
	return config.Load()
}

// configFile returns the file the watcher and 'config path' refer to.
func (o *rootOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ActivePath()
}

// app wires the application components from the loaded config.
func (o *rootOptions) app() (*App, error) {
	if o.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return NewApp(o.cfg, o.logger)
}

// NewRootCmd builds the auditchat command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "auditchat",
		Short: "Terminal chat client with audited replies",
		Long: `auditchat talks to an assistant whose replies are audited after they arrive.

Run without arguments to start the interactive interface. Changes made while
offline are queued and replayed once the server is reachable again.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			config.SetGlobal(cfg)

			logger, level, err := logging.New(logging.Options{
				Level:       cfg.Log.Level,
				Path:        cfg.LogPath(),
				Development: opts.debug,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v; logging disabled\n", err)
				logger = zap.NewNop()
			}
			if opts.debug {
				level.SetLevel(zap.DebugLevel)
			}
			opts.logger = logger
			opts.level = level
			logger.Debug("command started", zap.String("command", cmd.CommandPath()), zap.String("version", Version))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.auditchat/config.toml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log at debug level")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAskCmd(opts))
	cmd.AddCommand(newConversationsCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newQueueCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// The version never needs a config file.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "auditchat %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// Execute runs the root command and returns the process exit code.
// An interrupt cancels the command's context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
