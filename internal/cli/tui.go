// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/auditchat/internal/config"
	"github.com/jeranaias/auditchat/internal/logging"
	"github.com/jeranaias/auditchat/internal/ui/chat"
	"github.com/jeranaias/auditchat/internal/ui/styles"
)

// runTUI starts the interactive interface with the connectivity monitor and
// config watcher running alongside it.
func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	if err := RequiresTTY("start the interactive interface"); err != nil {
		return err
	}

	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.RequireServer(); err != nil {
		return err
	}
	logger := app.Logger

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var watcher *config.Watcher
	if path, err := opts.configFile(); err == nil {
		watcher = config.NewWatcher(path, config.DefaultDebounce, logger.Named("config"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Monitor.Run(gctx)
		return nil
	})
	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	ctrl := app.Controller(ctx, nil)
	model := chat.New(chat.Options{
		Controller: ctrl,
		Theme:      styles.NewTheme(app.Config.UI.Theme),
		ShowScores: app.Config.UI.ShowScores,
		Watcher:    watcher,
		Monitor:    app.Monitor,
		OnConfig:   func(cfg *config.Config) { applyReload(opts, cfg) },
		Context:    ctx,
		Logger:     logger.Named("ui"),
	})

	logger.Info("starting interface",
		zap.String("server", app.Client.BaseURL()),
		zap.String("session", app.Session.SessionID()))

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	_, runErr := program.Run()

	cancel()
	_ = g.Wait()

	logger.Info("interface closed", zap.Duration("session", app.Session.Duration()))
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

// applyReload follows log.level changes made while the interface runs and
// publishes the new config globally.
func applyReload(opts *rootOptions, cfg *config.Config) {
	config.SetGlobal(cfg)
	if opts.debug {
		return
	}
	opts.level.SetLevel(logging.ParseLevel(cfg.Log.Level))
}
