package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// processConfig is the environment-driven process configuration. It
// covers only where the stores live and how verbose the process is;
// user settings themselves live in the stores.
type processConfig struct {
	// DataDir holds the backing stores.
	DataDir string `env:"CONFSYNC_DATA_DIR"`

	// LogLevel is the initial logging verbosity name.
	LogLevel string `env:"CONFSYNC_LOG_LEVEL" envDefault:"info"`
}

// loadConfig reads the process configuration from the environment.
func loadConfig() (processConfig, error) {
	var cfg processConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolving data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".config", "confsync")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return cfg, fmt.Errorf("creating data dir: %w", err)
	}
	return cfg, nil
}

// replicatedStorePath returns the replicated area's document path.
func (c processConfig) replicatedStorePath() string {
	return filepath.Join(c.DataDir, "replicated.json")
}

// localStorePath returns the local area's database path.
func (c processConfig) localStorePath() string {
	return filepath.Join(c.DataDir, "local.db")
}
