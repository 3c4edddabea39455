// Command confsync inspects and edits the synchronized settings
// stores from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/confsync/confsync/internal/logging"
	"github.com/confsync/confsync/internal/schema"
	"github.com/confsync/confsync/internal/settings"
	"github.com/confsync/confsync/internal/storage"
	"github.com/confsync/confsync/internal/storage/bolt"
	"github.com/confsync/confsync/internal/storage/jsonfile"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// environment bundles everything a command needs.
type environment struct {
	cfg     processConfig
	logger  *logging.Logger
	service *settings.Service
	local   *bolt.Backend
}

// openEnvironment builds the service over the on-disk stores.
func openEnvironment() (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: os.Stderr,
		Prefix: "confsync",
	})

	replicated, err := jsonfile.Open(cfg.replicatedStorePath())
	if err != nil {
		return nil, fmt.Errorf("opening replicated store: %w", err)
	}

	local, err := bolt.Open(cfg.localStorePath())
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	registry := schema.NewWithDefaults()
	service := settings.New(registry, map[storage.Area]storage.Backend{
		storage.AreaReplicated: replicated,
		storage.AreaLocal:      local,
	}, settings.WithLogger(logger))

	// The stored loggingLevel governs verbosity from here on;
	// CONFSYNC_LOG_LEVEL only covers the window before the stores open.
	service.AttachLevelSync(context.Background(),
		logging.NewSynchronizer(logger, nil, "cli", nil))

	return &environment{
		cfg:     cfg,
		logger:  logger,
		service: service,
		local:   local,
	}, nil
}

// close releases the stores.
func (e *environment) close() {
	e.service.Close()
	if err := e.local.Close(); err != nil {
		e.logger.Warn("closing local store: %v", err)
	}
}
