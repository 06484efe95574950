// Package config loads the laneqc CLI configuration. Values are layered:
// defaults, then ~/.laneqc/config.json, then the file given on the command
// line, then LANEQC_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LANEQC_"

// Configuration represents the laneqc CLI configuration
type Configuration struct {
	ReportDir         string `koanf:"report_dir" validate:"required"`
	RuleProfile       int    `koanf:"rule_profile" validate:"oneof=1 2 3"`
	StateDir          string `koanf:"state_dir" validate:"required"`
	HistoryMaxEntries int    `koanf:"history_max_entries" validate:"min=0"`
	MasterLabelsPath  string `koanf:"master_labels_path"`
	LogLevel          string `koanf:"log_level" validate:"oneof=debug info warn error"`
	ShowProgress      bool   `koanf:"show_progress"` // Show the stage spinner on a TTY
	NoColor           bool   `koanf:"no_color"`
}

// GlobalConfigPath returns ~/.laneqc/config.json, or "" when there is no
// home directory.
func GlobalConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".laneqc", "config.json")
}

// Load loads configuration from global, local, and environment sources
// Priority: Environment variables > Local config > Global config > Defaults
func Load(localConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	if globalPath := GlobalConfigPath(); globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			if err := k.Load(file.Provider(globalPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("loading global config: %w", err)
			}
		}
	}

	// An explicit path must exist.
	if localConfigPath != "" {
		if _, err := os.Stat(localConfigPath); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", localConfigPath, err)
		}
		if err := k.Load(file.Provider(localConfigPath), json.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", localConfigPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ValidationError{FilePath: localConfigPath, Message: fmt.Sprintf("config validation failed: %v", err)}
	}

	cfg.StateDir = expandHomePath(cfg.StateDir)
	cfg.ReportDir = expandHomePath(cfg.ReportDir)
	cfg.MasterLabelsPath = expandHomePath(cfg.MasterLabelsPath)

	return &cfg, nil
}

// envTransform converts environment variable names to config keys
// Example: LANEQC_REPORT_DIR -> report_dir
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
