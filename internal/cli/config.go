// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command.
//
// Subcommands:
//   show (default)      Display current configuration
//   set <key> <value>   Set a configuration value
//   path                Show configuration file location
//   init                Write the default configuration file
//
// Examples:
//   auditchat config show --json
//   auditchat config set server.url https://audit.example.com
//   auditchat config set ui.theme light
//   auditchat config init --force

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/auditchat/internal/config"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, root.cfg, asJSON)
		},
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "output JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, root.cfg, asJSON)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := root.configFile()
			if err != nil {
				return err
			}
			_, statErr := os.Stat(path)
			exists := statErr == nil
			if asJSON {
				return writeJSON(cmd, map[string]any{"path": path, "exists": exists})
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			if !exists {
				fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("(not created yet; run 'auditchat config init')"))
			}
			return nil
		},
	})

	cmd.AddCommand(newConfigSetCmd(root))
	cmd.AddCommand(newConfigInitCmd(root))
	return cmd
}

func newConfigSetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value and save the file.\n\nKeys:\n" + configKeyHelp(),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := root.configFile()
			if err != nil {
				return err
			}
			cfg, err := fileConfig(path)
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := saveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("[OK]"), args[0], args[1])
			return nil
		},
	}
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := root.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := saveConfig(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// =============================================================================
// SHOW
// =============================================================================

func showConfig(cmd *cobra.Command, cfg *config.Config, asJSON bool) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	if asJSON {
		safe := cfg.Clone()
		safe.Server.Token = maskSecret(safe.Server.Token)
		return writeJSON(cmd, safe)
	}
	fmt.Fprint(cmd.OutOrStdout(), cfg.String())
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// maskSecret keeps the last four characters of a token.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// =============================================================================
// SET
// =============================================================================

// configSetters maps dotted keys to their assignment.
var configSetters = map[string]func(cfg *config.Config, value string) error{
	"server.url": func(cfg *config.Config, v string) error {
		cfg.Server.URL = v
		return nil
	},
	"server.timeout_secs": func(cfg *config.Config, v string) error {
		return setInt(&cfg.Server.TimeoutSecs, v)
	},
	"audit.max_attempts": func(cfg *config.Config, v string) error {
		return setInt(&cfg.Audit.MaxAttempts, v)
	},
	"audit.interval_ms": func(cfg *config.Config, v string) error {
		return setInt(&cfg.Audit.IntervalMs, v)
	},
	"offline.forced": func(cfg *config.Config, v string) error {
		return setBool(&cfg.Offline.Forced, v)
	},
	"offline.replay_rate_per_sec": func(cfg *config.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		cfg.Offline.ReplayRatePerSec = f
		return nil
	},
	"offline.probe_interval_secs": func(cfg *config.Config, v string) error {
		return setInt(&cfg.Offline.ProbeIntervalSecs, v)
	},
	"offline.max_queue_size": func(cfg *config.Config, v string) error {
		return setInt(&cfg.Offline.MaxQueueSize, v)
	},
	"storage.backend": func(cfg *config.Config, v string) error {
		cfg.Storage.Backend = v
		return nil
	},
	"storage.path": func(cfg *config.Config, v string) error {
		cfg.Storage.Path = v
		return nil
	},
	"ui.theme": func(cfg *config.Config, v string) error {
		cfg.UI.Theme = v
		return nil
	},
	"ui.show_scores": func(cfg *config.Config, v string) error {
		return setBool(&cfg.UI.ShowScores, v)
	},
	"ui.profile": func(cfg *config.Config, v string) error {
		cfg.UI.Profile = v
		return nil
	},
	"log.level": func(cfg *config.Config, v string) error {
		cfg.Log.Level = v
		return nil
	},
	"log.path": func(cfg *config.Config, v string) error {
		cfg.Log.Path = v
		return nil
	},
}

func setConfigValue(cfg *config.Config, key, value string) error {
	set, ok := configSetters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown config key %q\n\nKeys:\n%s", key, configKeyHelp())
	}
	return set(cfg, strings.TrimSpace(value))
}

func configKeyHelp() string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, "  "+k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid integer %q", v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", v)
	}
	*dst = b
	return nil
}

// fileConfig loads path, or the defaults when it does not exist, without
// environment overrides.
func fileConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}
	if strings.HasSuffix(path, ".json") {
		return cfg, config.LoadJSON(cfg, path)
	}
	return cfg, config.LoadTOML(cfg, path)
}

func saveConfig(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}
