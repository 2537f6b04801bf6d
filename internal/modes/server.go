// Package modes assembles the daemon: configuration in, wired
// components out, blocking until a shutdown signal.
package modes

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fileflow/internal/fileflow/cloud"
	"fileflow/internal/fileflow/core/download"
	"fileflow/internal/fileflow/core/lifecycle"
	"fileflow/internal/fileflow/core/transform"
	"fileflow/internal/fileflow/core/upload"
	"fileflow/internal/fileflow/server"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/config"
	"fileflow/pkg/logger"
)

// RunServer wires every component against the configuration and serves
// until SIGINT/SIGTERM, then drains: HTTP first so no new work arrives,
// then the transform workers, then the sweeper.
func RunServer(cfg *config.Config) error {
	log := logger.WithField("mode", "server")

	log.Info("starting fileflow server",
		"address", cfg.GetServerAddress(),
		"storageBackend", cfg.Storage.Backend,
		"transformWorkers", cfg.Transform.Workers)

	backend, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	sessions := state.NewSessionStore()
	files := state.NewFileStore()
	jobs := state.NewJobStore()

	uploads := upload.NewManager(sessions, files, backend, cfg.Upload)
	downloads := download.NewStreamer(files, backend, cfg.Download)

	transformCfg := cfg.Transform
	transformCfg.WorkDir = cfg.EffectiveWorkDir()
	engine := transform.NewEngine(jobs, files, backend, transformCfg, cfg.Upload.FileTTL.Std(), nil)
	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start transform engine: %w", err)
	}

	sweeper := lifecycle.NewSweeper(sessions, files, jobs, backend, cfg.Retention)
	sweeper.Start()

	broker := cloud.NewBroker(cfg.Cloud)

	srv := server.New(cfg, uploads, downloads, engine, broker, files, backend)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("server started successfully", "address", cfg.GetServerAddress())

	select {
	case sig := <-sigChan:
		log.Info("received shutdown signal, stopping server...", "signal", sig.String())
	case err := <-serveErr:
		sweeper.Stop()
		engine.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown did not complete cleanly", "error", err)
	}

	engine.Stop()
	sweeper.Stop()

	log.Info("server stopped gracefully")
	return nil
}

// newBackend selects the configured blob store.
func newBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "local":
		return storage.NewLocalBackend(cfg.Storage.Root)
	case "minio":
		return storage.NewMinioBackend(context.Background(), cfg.Storage.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
