// Package config handles loading, parsing, and validating YAML configuration
// files for eventsub-watch. It supports per-target configuration with
// environment variable overrides for notification secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the default directory for watch-target configuration
// files.
const DefaultConfigDir = "configs"

// LoadTargetConfig loads a single watch-target configuration from a YAML
// file, then overlays environment variables for notification secrets.
func LoadTargetConfig(path string) (*TargetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg TargetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	cfg.Name = strings.TrimSuffix(filename, ext)

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadAllTargetConfigs loads all .yaml/.yml files from the given directory.
// Each file is expected to contain a single TargetConfig. Only files ending
// in .yaml or .yml are loaded; everything else (including .yaml.example) is
// ignored by the extension check. The target's name is derived from the
// config filename.
func LoadAllTargetConfigs(dir string) ([]*TargetConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading config directory %s: %w", dir, err)
	}

	var configs []*TargetConfig
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		cfg, err := LoadTargetConfig(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}

		configs = append(configs, cfg)
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("no target config files found in %s", dir)
	}

	return configs, nil
}

// getEnv looks up an environment variable with a per-target suffix.
func getEnv(key, name string) string {
	return os.Getenv(key + "_" + strings.ToUpper(name))
}

// applyEnvOverrides overlays environment variables for secrets.
// Every variable requires the target-name suffix: KEY_<UPPERCASE_NAME>
func applyEnvOverrides(cfg *TargetConfig) {
	n := cfg.Name

	if cfg.Notifications.Telegram != nil {
		if v := getEnv("TELEGRAM_TOKEN", n); v != "" {
			cfg.Notifications.Telegram.Token = v
		}
		if v := getEnv("TELEGRAM_CHAT_ID", n); v != "" {
			cfg.Notifications.Telegram.ChatID = v
		}
	}

	if cfg.Notifications.Discord != nil {
		if v := getEnv("DISCORD_WEBHOOK", n); v != "" {
			cfg.Notifications.Discord.WebhookURL = v
		}
	}

	if cfg.Notifications.Webhook != nil {
		if v := getEnv("WEBHOOK_URL", n); v != "" {
			cfg.Notifications.Webhook.Endpoint = v
		}
	}

	if cfg.Notifications.Matrix != nil {
		if v := getEnv("MATRIX_HOMESERVER", n); v != "" {
			cfg.Notifications.Matrix.Homeserver = v
		}
		if v := getEnv("MATRIX_ROOM_ID", n); v != "" {
			cfg.Notifications.Matrix.RoomID = v
		}
		if v := getEnv("MATRIX_ACCESS_TOKEN", n); v != "" {
			cfg.Notifications.Matrix.AccessToken = v
		}
	}

	if cfg.Notifications.Pushover != nil {
		if v := getEnv("PUSHOVER_TOKEN", n); v != "" {
			cfg.Notifications.Pushover.APIToken = v
		}
		if v := getEnv("PUSHOVER_USER_KEY", n); v != "" {
			cfg.Notifications.Pushover.UserKey = v
		}
	}

	if cfg.Notifications.Gotify != nil {
		if v := getEnv("GOTIFY_URL", n); v != "" {
			cfg.Notifications.Gotify.URL = v
		}
		if v := getEnv("GOTIFY_TOKEN", n); v != "" {
			cfg.Notifications.Gotify.Token = v
		}
	}
}

// Validate checks the configuration for common errors.
func Validate(cfg *TargetConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("target name is required")
	}

	if cfg.KeepaliveSeconds != 0 && (cfg.KeepaliveSeconds < 10 || cfg.KeepaliveSeconds > 600) {
		return fmt.Errorf("target %s: keepalive_seconds %d outside [10, 600]", cfg.Name, cfg.KeepaliveSeconds)
	}

	if cfg.Notifications.Telegram != nil && cfg.Notifications.Telegram.Enabled {
		if cfg.Notifications.Telegram.Token == "" || cfg.Notifications.Telegram.ChatID == "" {
			u := strings.ToUpper(cfg.Name)
			return fmt.Errorf("target %s: telegram enabled but token or chat_id not set (use env vars TELEGRAM_TOKEN_%s and TELEGRAM_CHAT_ID_%s)", cfg.Name, u, u)
		}
	}

	if cfg.Notifications.Discord != nil && cfg.Notifications.Discord.Enabled {
		if cfg.Notifications.Discord.WebhookURL == "" {
			return fmt.Errorf("target %s: discord enabled but webhook_url not set (use env var DISCORD_WEBHOOK_%s)", cfg.Name, strings.ToUpper(cfg.Name))
		}
	}

	return nil
}
