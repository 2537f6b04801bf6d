package main

import (
	"fmt"
	"os"

	"fileflow/internal/modes"
	"fileflow/pkg/config"
	"fileflow/pkg/logger"
)

func main() {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	log := logger.WithField("component", "fileflowd")
	log.Info("starting fileflow daemon",
		"config", configPath,
		"address", cfg.GetServerAddress(),
		"backend", cfg.Storage.Backend)

	if err := modes.RunServer(cfg); err != nil {
		log.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}

	log.Info("daemon stopped")
}
