// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for auditchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Server URL, session token and request timeout
//   - AuditConfig: Audit polling attempts and interval
//   - OfflineConfig: Forced offline mode, replay rate and probing
//   - StorageConfig: Local state backend (sqlite, bolt, memory)
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AUDITCHAT_*)
//   - ~/.auditchat/config.toml
//   - ~/.auditchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Watch for edits while the TUI is running:
//
//	err := config.Watch(ctx, path, func(cfg *config.Config) { ... })
package config
