// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/auditchat/internal/offline"
	"github.com/jeranaias/auditchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete auditchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Audit   AuditConfig   `toml:"audit" json:"audit"`
	Offline OfflineConfig `toml:"offline" json:"offline"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// ServerConfig contains the connection to the assistant server.
type ServerConfig struct {
	// URL is the server base URL, e.g. https://audit.example.com
	URL string `toml:"url" json:"url"`
	// Token is the bearer session token. Prefer AUDITCHAT_TOKEN or the
	// stored session over writing it here.
	Token string `toml:"token" json:"token,omitempty"`
	// TimeoutSecs is the per-request timeout
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// AuditConfig controls polling for audit results.
type AuditConfig struct {
	// MaxAttempts is the number of audit fetches before giving up
	MaxAttempts int `toml:"max_attempts" json:"max_attempts"`
	// IntervalMs is the fixed delay between fetches
	IntervalMs int `toml:"interval_ms" json:"interval_ms"`
}

// OfflineConfig controls the offline queue and connectivity probing.
type OfflineConfig struct {
	// Forced disables all network access; mutations are queued
	Forced bool `toml:"forced" json:"forced"`
	// ReplayRatePerSec bounds how fast queued operations are replayed
	ReplayRatePerSec float64 `toml:"replay_rate_per_sec" json:"replay_rate_per_sec"`
	// ProbeIntervalSecs is how often the server is probed while offline
	ProbeIntervalSecs int `toml:"probe_interval_secs" json:"probe_interval_secs"`
	// MaxQueueSize limits pending operations (0 = unlimited)
	MaxQueueSize int `toml:"max_queue_size" json:"max_queue_size"`
}

// StorageConfig selects the local key-value store.
type StorageConfig struct {
	// Backend is "sqlite", "bolt" or "memory"
	Backend string `toml:"backend" json:"backend"`
	// Path is the database file; empty means ~/.auditchat/state.db
	Path string `toml:"path" json:"path,omitempty"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowScores displays the spirit score next to audited replies
	ShowScores bool `toml:"show_scores" json:"show_scores"`
	// Profile is the audit profile used until the user picks one
	Profile string `toml:"profile" json:"profile,omitempty"`
}

// LogConfig controls the log file.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error"
	Level string `toml:"level" json:"level"`
	// Path is the log file; empty means ~/.auditchat/auditchat.log
	Path string `toml:"path" json:"path,omitempty"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			URL:         "http://localhost:8080",
			TimeoutSecs: 30,
		},
		Audit: AuditConfig{
			MaxAttempts: 10,
			IntervalMs:  2000,
		},
		Offline: OfflineConfig{
			ReplayRatePerSec:  2,
			ProbeIntervalSecs: 15,
			MaxQueueSize:      500,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		UI: UIConfig{
			Theme:      "auto",
			ShowScores: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// AuditInterval returns the delay between audit fetches.
func (c *Config) AuditInterval() time.Duration {
	return time.Duration(c.Audit.IntervalMs) * time.Millisecond
}

// ProbeInterval returns the delay between connectivity probes.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Offline.ProbeIntervalSecs) * time.Second
}

// StoragePath returns the configured storage path or the default location.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return expandHome(c.Storage.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "state.db"
	}
	name := "state.db"
	if strings.EqualFold(c.Storage.Backend, "bolt") {
		name = "state.bolt"
	}
	return filepath.Join(dir, name)
}

// LogPath returns the configured log file or the default location.
func (c *Config) LogPath() string {
	if c.Log.Path != "" {
		return expandHome(c.Log.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "auditchat.log"
	}
	return filepath.Join(dir, "auditchat.log")
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the auditchat configuration directory path.
// AUDITCHAT_HOME overrides the default ~/.auditchat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("AUDITCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".auditchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ActivePath returns the config file Load would read, or the TOML path if
// none exists yet.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath, nil
		}
	}
	return tomlPath, nil
}

// ensureSecurePermissions tightens config files to 0600 since they may
// hold a session token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ActivePath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Server.URL == "" {
		cfg.Server.URL = defaults.Server.URL
	}
	if cfg.Server.TimeoutSecs == 0 {
		cfg.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}

	if cfg.Audit.MaxAttempts == 0 {
		cfg.Audit.MaxAttempts = defaults.Audit.MaxAttempts
	}
	if cfg.Audit.IntervalMs == 0 {
		cfg.Audit.IntervalMs = defaults.Audit.IntervalMs
	}

	if cfg.Offline.ReplayRatePerSec == 0 {
		cfg.Offline.ReplayRatePerSec = defaults.Offline.ReplayRatePerSec
	}
	if cfg.Offline.ProbeIntervalSecs == 0 {
		cfg.Offline.ProbeIntervalSecs = defaults.Offline.ProbeIntervalSecs
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# auditchat configuration file")
	fmt.Fprintln(&buf, "# Generated by auditchat - edit with care")
	fmt.Fprintln(&buf, "#")
	fmt.Fprintln(&buf, "# Environment overrides: AUDITCHAT_SERVER_URL, AUDITCHAT_TOKEN,")
	fmt.Fprintln(&buf, "# AUDITCHAT_OFFLINE, AUDITCHAT_THEME, AUDITCHAT_LOG_LEVEL, AUDITCHAT_STORAGE_BACKEND")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := offline.ValidateServerURL(c.Server.URL); err != nil {
		errs = append(errs, ValidationError{Field: "server.url", Message: err.Error()})
	}
	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{Field: "server.timeout_secs", Message: "must be between 1 and 600"})
	}

	if c.Audit.MaxAttempts < 1 || c.Audit.MaxAttempts > 100 {
		errs = append(errs, ValidationError{Field: "audit.max_attempts", Message: "must be between 1 and 100"})
	}
	if c.Audit.IntervalMs < 100 || c.Audit.IntervalMs > 60000 {
		errs = append(errs, ValidationError{Field: "audit.interval_ms", Message: "must be between 100 and 60000"})
	}

	if c.Offline.ReplayRatePerSec < 0 {
		errs = append(errs, ValidationError{Field: "offline.replay_rate_per_sec", Message: "must not be negative"})
	}
	if c.Offline.ProbeIntervalSecs < 1 {
		errs = append(errs, ValidationError{Field: "offline.probe_interval_secs", Message: "must be at least 1"})
	}
	if c.Offline.MaxQueueSize < 0 {
		errs = append(errs, ValidationError{Field: "offline.max_queue_size", Message: "must not be negative"})
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "sqlite", "bolt", "memory":
	default:
		errs = append(errs, ValidationError{Field: "storage.backend", Message: fmt.Sprintf("unknown backend %q (want sqlite, bolt or memory)", c.Storage.Backend)})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("unknown theme %q (want auto, dark or light)", c.UI.Theme)})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AUDITCHAT_SERVER_URL: overrides server.url
//   - AUDITCHAT_TOKEN: overrides server.token
//   - AUDITCHAT_OFFLINE: "1" or "true" forces offline mode
//   - AUDITCHAT_THEME: overrides ui.theme
//   - AUDITCHAT_LOG_LEVEL: overrides log.level
//   - AUDITCHAT_STORAGE_BACKEND: overrides storage.backend
func (c *Config) ApplyEnvOverrides() {
	if url := os.Getenv("AUDITCHAT_SERVER_URL"); url != "" {
		c.Server.URL = url
	}
	if token := os.Getenv("AUDITCHAT_TOKEN"); token != "" {
		c.Server.Token = token
	}
	if off := os.Getenv("AUDITCHAT_OFFLINE"); off != "" {
		if b, err := strconv.ParseBool(off); err == nil {
			c.Offline.Forced = b
		}
	}
	if theme := os.Getenv("AUDITCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if level := os.Getenv("AUDITCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if backend := os.Getenv("AUDITCHAT_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Server.Token != "" {
		safe.Server.Token = "[REDACTED]"
	}
	var buf bytes.Buffer
	_ = toml.NewEncoder(&buf).Encode(safe)
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
