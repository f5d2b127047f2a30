package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"telnetd/internal/app"
	"telnetd/internal/bridge"
	"telnetd/internal/network"
	"telnetd/internal/session"
)

var serverCmd = &cobra.Command{
	Use:              "server",
	Short:            "Start the server",
	PersistentPreRun: bootAppForServer,
	Run:              startServer,
}

func bootAppForServer(cmd *cobra.Command, args []string) {
	if err := app.Boot(cfgFile, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// relative makes a path relative to the working directory for cleaner
// logging.
func relative(path string) string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, path); err == nil {
			return rel
		}
	}
	return path
}

func watchConfig(restartChan chan<- struct{}) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		app.Logger.Error("Failed to create watcher", "err", err)
		return nil
	}

	// Watch all loaded config files
	for _, file := range app.Config.LoadedFiles {
		if err := watcher.Add(file); err != nil {
			app.Logger.Error("Failed to watch config file", "file", relative(file), "err", err)
		} else {
			app.Logger.Debug("Watching config file", "file", relative(file))
		}
	}

	go func(w *fsnotify.Watcher) {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Write) {
					continue
				}
				// Check if hot reload is still enabled (in case it was disabled in the new config)
				if !app.Config.HotReload {
					continue
				}

				app.Logger.Info("Config file modified, reloading...", "file", relative(event.Name))
				select {
				case restartChan <- struct{}{}:
				default:
					// restart pending
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				app.Logger.Error("Watcher error", "err", err)
			}
		}
	}(watcher)

	return watcher
}

func startServer(cmd *cobra.Command, args []string) {
	restartChan := make(chan struct{}, 1)
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	// Listeners replaced by a reload leave their connections running until
	// shutdown
	var (
		retired  []*network.Telnet
		services []*bridge.StreamService
	)

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, s := range retired {
			if err := s.Shutdown(ctx); err != nil {
				app.Logger.Warn("Telnet connections did not close in time", "err", err)
			}
		}
		for _, svc := range services {
			svc.Wait()
		}
	}

	for {
		var watcher *fsnotify.Watcher
		if app.Config.HotReload {
			watcher = watchConfig(restartChan)
		}

		var wg sync.WaitGroup
		var adminServer *network.Admin
		var telnetServer *network.Telnet

		telnetEnabled := app.Config.Listeners.Telnet.Enabled
		metricsEnabled := app.Config.Listeners.Metrics.Enabled

		if !telnetEnabled && !metricsEnabled {
			app.Logger.Warn("No listeners enabled.")
			// Wait for config change or stop
			select {
			case <-stopChan:
				if watcher != nil {
					watcher.Close()
				}
				shutdown()
				return
			case <-restartChan:
				if watcher != nil {
					watcher.Close()
				}
				if err := app.Boot(cfgFile, false); err != nil {
					app.Logger.Error("Failed to reload config", "err", err)
				}
				continue
			}
		}

		// Start Admin Server
		if metricsEnabled {
			wg.Add(1)
			adminServer = network.NewAdmin()
			go func() {
				defer wg.Done()
				if err := adminServer.ListenAndServe(); err != nil {
					app.Logger.Error("Admin Server stopped", "err", err)
				}
			}()
		}

		// Start Telnet Server
		if telnetEnabled {
			b, svc := bridge.NewStreamBridge(app.Nodes, app.Logger, func(s *bridge.Stream) {
				session.RunSession(s, app.Logger)
			})
			services = append(services, svc)

			wg.Add(1)
			telnetServer = network.NewTelnet(b)
			retired = append(retired, telnetServer)
			go func() {
				defer wg.Done()
				if err := telnetServer.ListenAndServe(); err != nil {
					app.Logger.Error("Telnet Server stopped", "err", err)
				}
			}()
		}

		stopListeners := func() {
			if adminServer != nil {
				adminServer.Stop()
			}
			if telnetServer != nil {
				telnetServer.Stop()
			}
			if watcher != nil {
				watcher.Close()
			}
		}

		// Wait for stop or restart
		select {
		case <-stopChan:
			app.Logger.Info("Shutting down...")
			stopListeners()
			wg.Wait()
			shutdown()
			return

		case <-restartChan:
			stopListeners()

			// Wait for servers to stop
			wg.Wait()

			// Reload Config
			if err := app.Boot(cfgFile, false); err != nil {
				app.Logger.Error("Failed to reload config", "err", err)
				// We continue, which will restart servers with the *existing* config/store
				// because Boot did not swap them on failure.
			}
		}
	}
}
