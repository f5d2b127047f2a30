package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"telnetd/internal/config"
	"telnetd/internal/logger"
	"telnetd/internal/network/telnet"
	"telnetd/internal/nodes"
	"telnetd/internal/store"
)

var (
	Config   *config.Config
	Protocol telnet.Config
	Store    *store.Store
	Logger   *slog.Logger
	Nodes    *nodes.Manager

	storePath string
)

func Boot(configPath string, quiet bool) error {
	if configPath == "" {
		configPath = "config/telnetd.yml"
	}

	// Load the configuration
	newConfig, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	protocol, err := newConfig.Telnet.Protocol()
	if err != nil {
		return fmt.Errorf("invalid telnet configuration: %w", err)
	}

	// If all successful, swap globals and cleanup.
	Config = newConfig
	Protocol = protocol

	// Setup Logger
	Logger = logger.Setup(Config.Loggers, Config.Debug, quiet)

	// Prepare the data store
	dir := Config.Paths.Data
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data path: %w", err)
	}

	// Connections outlive a reload, so the store is only replaced when the
	// data path moves
	path := filepath.Clean(filepath.Join(dir, "telnetd.sqlite3"))
	if Store == nil || path != storePath {
		newStore, err := store.New(path, quiet || !Config.Debug)
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}

		if Store != nil {
			if err := Store.Close(); err != nil {
				Logger.Error("Failed to close existing store", "err", err)
			}
		}
		Store = newStore
		storePath = path
	}

	// Live connections stay registered across a reload unless the
	// capacity changed
	maxConnections := Config.MaxConnections
	if maxConnections <= 0 {
		maxConnections = nodes.DefaultMax
	}
	if Nodes == nil || Nodes.Max() != maxConnections {
		Nodes = nodes.NewManager(maxConnections)
	}

	if !quiet {
		Logger.Info("Successfully loaded configuration", "file", configPath)
	}

	return nil
}
