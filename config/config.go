// Package config loads quill's YAML configuration and holds the auto-approval
// policy the task loop enforces.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AutoApprovalSettings controls which tool categories may execute without an
// explicit operator confirmation, bounded by MaxRequests consecutive
// auto-approvals. Once the ceiling is hit the operator must opt back in.
type AutoApprovalSettings struct {
	Enabled             bool `yaml:"enabled"`
	ReadFiles           bool `yaml:"read_files"`
	EditFiles           bool `yaml:"edit_files"`
	ExecuteCommands     bool `yaml:"execute_commands"`
	MaxRequests         int  `yaml:"max_requests"`
	EnableNotifications bool `yaml:"enable_notifications"`
}

// DefaultAutoApprovalSettings returns the conservative default: nothing
// auto-approved, ceiling of 20.
func DefaultAutoApprovalSettings() AutoApprovalSettings {
	return AutoApprovalSettings{MaxRequests: 20}
}

// Config is the full application configuration.
type Config struct {
	Provider              string               `yaml:"provider"`
	Model                 string               `yaml:"model"`
	APIKey                string               `yaml:"api_key,omitempty"`
	AutoApproval          AutoApprovalSettings `yaml:"auto_approval"`
	CommandTimeoutSeconds int                  `yaml:"command_timeout_seconds"`
	LogLevel              string               `yaml:"log_level"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Provider:              "anthropic",
		Model:                 "claude-3-5-sonnet-20241022",
		AutoApproval:          DefaultAutoApprovalSettings(),
		CommandTimeoutSeconds: 600,
		LogLevel:              "warn",
	}
}

// DefaultDir returns quill's configuration directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "quill"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a config file, filling unset fields from defaults. A missing
// file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.AutoApproval.MaxRequests <= 0 {
		cfg.AutoApproval.MaxRequests = DefaultAutoApprovalSettings().MaxRequests
	}
	if cfg.CommandTimeoutSeconds <= 0 {
		cfg.CommandTimeoutSeconds = Default().CommandTimeoutSeconds
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
