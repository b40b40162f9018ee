// Package server implements the myriad server command
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paularlott/cli"

	"github.com/druroland/myriad/internal/api"
	"github.com/druroland/myriad/internal/config"
	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/mcp"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/secrets"
	"github.com/druroland/myriad/internal/storage"
	"github.com/druroland/myriad/internal/sync"
	"github.com/druroland/myriad/internal/worker"
)

// ServerConfig holds the wired components for running the server
type ServerConfig struct {
	Config     *config.Config
	Store      storage.Storage
	Engine     *sync.Engine
	Scheduler  *worker.Scheduler
	MCPServer  *mcp.Server
	APIHandler *api.Handler
}

// seedLocations ensures the locations declared in the settings file
// exist before any integration sync points hosts at them
func seedLocations(store storage.Storage, settings *config.Settings) {
	ls, ok := store.(storage.LocationStorage)
	if !ok {
		if len(settings.Locations) > 0 {
			log.Warn("Storage does not support locations, settings locations ignored")
		}
		return
	}

	for _, loc := range settings.Locations {
		location := &model.Location{
			ID:   loc.ID,
			Name: loc.Name,
		}
		if loc.NetworkCIDR != "" {
			cidr := loc.NetworkCIDR
			location.NetworkCIDR = &cidr
		}
		if loc.Description != "" {
			desc := loc.Description
			location.Description = &desc
		}
		if err := ls.EnsureLocation(location); err != nil {
			log.Error("Failed to ensure location", "id", loc.ID, "error", err)
			continue
		}
		log.Debug("Location ensured", "id", loc.ID, "name", loc.Name)
	}
}

// RunServer starts the myriad server with the given configuration
func RunServer(cfg *ServerConfig) error {
	mux := http.NewServeMux()

	// API routes
	cfg.APIHandler.RegisterRoutes(mux)

	// MCP endpoint
	mux.HandleFunc("/mcp", cfg.MCPServer.GetHTTPHandler())

	// Apply middleware
	var handler http.Handler = mux
	if cfg.Config.IsAPIAuthEnabled() {
		handler = api.AuthMiddleware(cfg.Config.APIAuthToken, handler)
	}
	handler = api.SecurityHeadersMiddleware(handler)

	server := &http.Server{
		Addr:    cfg.Config.ListenAddr,
		Handler: handler,
	}

	// Start the sync scheduler
	if cfg.Scheduler != nil {
		cfg.Scheduler.Start()
		if cfg.Config.SyncOnStart {
			go cfg.Scheduler.RunNow()
		}
	}

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down server...")
		if cfg.Scheduler != nil {
			cfg.Scheduler.Stop()
		}
		server.Close()
	}()

	// Log startup info
	log.Info("Starting myriad server", "addr", cfg.Config.ListenAddr)
	log.Info("API available", "url", "http://localhost"+cfg.Config.ListenAddr+"/api/")
	log.Info("MCP available", "url", "http://localhost"+cfg.Config.ListenAddr+"/mcp")
	if cfg.Config.IsMCPAuthEnabled() {
		log.Info("MCP authentication enabled")
	}
	if cfg.Config.IsAPIAuthEnabled() {
		log.Info("API authentication enabled")
	}
	cfg.MCPServer.LogStartup()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("Server error", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the myriad server",
		Description: "Start the HTTP server with REST API, MCP endpoint and scheduled inventory syncs",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(cmd)

			log.Info("Configuration loaded", "data_dir", cfg.DataDir, "listen_addr", cfg.ListenAddr)

			settings, err := config.LoadSettings(cfg.SettingsFile)
			if err != nil {
				log.Error("Failed to load settings", "file", cfg.SettingsFile, "error", err)
				return err
			}
			secretData, err := config.LoadSecrets(cfg.SecretsFile)
			if err != nil {
				log.Error("Failed to load secrets", "file", cfg.SecretsFile, "error", err)
				return err
			}

			store, err := storage.NewStorage(cfg.DataDir)
			if err != nil {
				log.Error("Failed to initialize storage", "error", err)
				return err
			}
			defer store.Close()
			log.Info("Storage initialized", "backend", "SQLite", "path", cfg.DataDir)

			seedLocations(store, settings)

			engine := sync.NewEngine(store, settings, secrets.NewResolver(secretData))

			var scheduler *worker.Scheduler
			if cfg.SyncEnabled {
				scheduler = worker.NewScheduler(engine)
				if err := scheduler.Schedule(cfg.SyncSchedule); err != nil {
					log.Error("Invalid sync schedule", "schedule", cfg.SyncSchedule, "error", err)
					return err
				}
			} else {
				log.Info("Scheduled sync disabled, manual syncs via API/MCP remain available")
			}

			apiHandler := api.NewHandler(store, engine)
			mcpServer := mcp.NewServer(store, engine, cfg.MCPAuthToken)

			return RunServer(&ServerConfig{
				Config:     cfg,
				Store:      store,
				Engine:     engine,
				Scheduler:  scheduler,
				MCPServer:  mcpServer,
				APIHandler: apiHandler,
			})
		},
	}
}
