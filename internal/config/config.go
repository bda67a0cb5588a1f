// Package config loads procscope settings from the environment. Command
// flags override whatever is loaded here.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all procscope configuration.
type Config struct {
	// PollInterval is the wall-clock period between snapshot cycles.
	PollInterval time.Duration `envconfig:"PROCSCOPE_POLL_INTERVAL" default:"1s"`
	// SnapshotTimeout bounds each snapshot call; zero means the poll interval.
	SnapshotTimeout time.Duration `envconfig:"PROCSCOPE_SNAPSHOT_TIMEOUT" default:"0"`
	// RetainExited keeps exited processes visible, marked removed.
	RetainExited bool `envconfig:"PROCSCOPE_RETAIN_EXITED" default:"false"`
	// ListenAddr is the HTTP/WebSocket listen address for watch --listen.
	ListenAddr string `envconfig:"PROCSCOPE_LISTEN_ADDR" default:"127.0.0.1:7070"`
	// DBPath overrides the sample history database location.
	DBPath string `envconfig:"PROCSCOPE_DB" default:""`
	// LogLevel is the zap level for daemon/server logging.
	LogLevel string `envconfig:"PROCSCOPE_LOG_LEVEL" default:"info"`
	// ProfileDir is where CPU profile artifacts are written.
	ProfileDir string `envconfig:"PROCSCOPE_PROFILE_DIR" default:""`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or falls back to
// defaults when the environment is unusable.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		PollInterval: time.Second,
		ListenAddr:   "127.0.0.1:7070",
		LogLevel:     "info",
	}
}
