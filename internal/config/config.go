// Package config loads the corebridge settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the daemon and the CLI.
// Stored at ~/.config/corebridge/config.yaml.
type Config struct {
	FilesDir    string        `yaml:"files_dir"`    // handed to the core on start, restart, drop
	Socket      string        `yaml:"socket"`       // daemon IPC socket
	LogLevel    string        `yaml:"log_level"`    // debug, info, warn, error
	ListenAddr  string        `yaml:"listen_addr"`  // core API listener
	MetricsAddr string        `yaml:"metrics_addr"` // empty disables /metrics
	BotInterval time.Duration `yaml:"bot_interval"`
}

// Dir returns ~/.config/corebridge.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "corebridge"), nil
}

// DefaultPath returns ~/.config/corebridge/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the settings used when no file exists.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "corebridge")
	return &Config{
		FilesDir:    filepath.Join(home, ".local", "share", "corebridge"),
		Socket:      filepath.Join(dir, "run", "core.sock"),
		LogLevel:    "info",
		ListenAddr:  "127.0.0.1:0",
		BotInterval: 30 * time.Second,
	}, nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.FilesDir, err = expandHome(cfg.FilesDir); err != nil {
		return nil, err
	}
	if cfg.Socket, err = expandHome(cfg.Socket); err != nil {
		return nil, err
	}
	if cfg.Socket == "" {
		return nil, fmt.Errorf("config %q: socket must not be empty", path)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
