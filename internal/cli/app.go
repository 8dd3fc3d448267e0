// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/config"
	"github.com/jeranaias/auditchat/internal/offline"
	"github.com/jeranaias/auditchat/internal/protocol"
	"github.com/jeranaias/auditchat/internal/security"
	"github.com/jeranaias/auditchat/internal/session"
	"github.com/jeranaias/auditchat/internal/storage"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App holds the long-lived components shared by every command.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Store    storage.Store
	Settings *storage.Settings
	Queue    *offline.Queue
	Monitor  *offline.Monitor
	Replayer *offline.Replayer
	Client   *api.Client
	Session  *session.State
}

// NewApp opens local storage and connects the gateway, queue and monitor
// described by cfg.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}
	settings := storage.NewSettings(store)

	sealer, err := openSealer(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	settings.WithSecrets(sealer)

	queue, err := offline.NewQueue(store, cfg.Offline.MaxQueueSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load offline queue: %w", err)
	}

	sess := session.NewState(session.Options{
		Token:          cfg.Server.Token,
		DefaultProfile: cfg.UI.Profile,
		Settings:       settings,
	})

	client := api.NewClient(cfg.Server.URL, sess.Token()).
		WithTimeout(cfg.RequestTimeout()).
		WithLogger(logger.Named("api")).
		WithQueue(queue)

	monitor := offline.NewMonitor(client.Health, cfg.ProbeInterval(), cfg.Offline.Forced, logger.Named("offline"))
	client.WithMonitor(monitor)

	replayer := offline.NewReplayer(queue, offline.ExecutorFunc(client.Execute), cfg.Offline.ReplayRatePerSec, logger.Named("replay"))

	logger.Debug("application wired",
		zap.String("server", client.BaseURL()),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("queued", queue.Len()),
		zap.Bool("forced_offline", cfg.Offline.Forced))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Settings: settings,
		Queue:    queue,
		Monitor:  monitor,
		Replayer: replayer,
		Client:   client,
		Session:  sess,
	}, nil
}

// PassphraseEnv names the variable holding the optional passphrase the
// stored session token is sealed with.
const PassphraseEnv = "AUDITCHAT_PASSPHRASE"

// openSealer loads the device key kept next to the settings store.
func openSealer(cfg *config.Config) (*security.Sealer, error) {
	dir := filepath.Dir(cfg.StoragePath())
	key, err := security.LoadOrCreateKey(dir, os.Getenv(PassphraseEnv))
	if err != nil {
		return nil, fmt.Errorf("failed to load device key: %w", err)
	}
	defer security.ZeroBytes(key)
	return security.NewSealer(key)
}

// Controller builds a protocol controller over the app's components.
func (a *App) Controller(ctx context.Context, renderer protocol.Renderer) *protocol.Controller {
	return protocol.New(protocol.Options{
		Gateway:        a.Client,
		Renderer:       renderer,
		Session:        a.Session,
		Settings:       a.Settings,
		Queue:          a.Queue,
		Replayer:       a.Replayer,
		Monitor:        a.Monitor,
		MaxAttempts:    a.Config.Audit.MaxAttempts,
		Interval:       a.Config.AuditInterval(),
		RequestTimeout: a.Config.RequestTimeout(),
		Context:        ctx,
		Logger:         a.Logger.Named("protocol"),
	})
}

// RequireServer returns an error when no server URL is set.
func (a *App) RequireServer() error {
	if !a.Client.IsConfigured() {
		return errors.New("no server configured; set server.url or AUDITCHAT_SERVER_URL (see 'auditchat config path')")
	}
	return nil
}

// Close releases local storage.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
