package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig

	if cfg.Server.Address != "0.0.0.0" {
		t.Errorf("Expected Server Address '0.0.0.0', got '%s'", cfg.Server.Address)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected Server Port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Expected Storage Backend 'local', got '%s'", cfg.Storage.Backend)
	}
	if cfg.Upload.DefaultChunkSize != 5*1024*1024 {
		t.Errorf("Expected Upload DefaultChunkSize 5MiB, got %d", cfg.Upload.DefaultChunkSize)
	}
	if cfg.Transform.HeavyConcurrency != 1 {
		t.Errorf("Expected Transform HeavyConcurrency 1, got %d", cfg.Transform.HeavyConcurrency)
	}
	if cfg.Retention.SweepInterval.Std() != 5*time.Minute {
		t.Errorf("Expected Retention SweepInterval 5m, got %v", cfg.Retention.SweepInterval)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	testConfig := `
server:
  address: "file.example.com"
  port: 6666
storage:
  backend: "local"
  root: "/data/fileflow"
upload:
  defaultChunkSize: 1048576
  sessionTTL: "2h"
transform:
  workers: 8
  heavyConcurrency: 2
logging:
  level: "WARN"
`
	configFile := filepath.Join(t.TempDir(), "fileflow.yaml")
	if err := os.WriteFile(configFile, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("FILEFLOW_CONFIG_PATH", configFile)
	t.Setenv("FILEFLOW_SERVER_ADDRESS", "env.example.com")
	t.Setenv("FILEFLOW_SERVER_PORT", "7777")
	t.Setenv("FILEFLOW_LOG_LEVEL", "DEBUG")

	cfg, path, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Environment variables override file values
	if cfg.Server.Address != "env.example.com" {
		t.Errorf("Expected Server Address 'env.example.com', got '%s'", cfg.Server.Address)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Expected Server Port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected Logging Level 'DEBUG', got '%s'", cfg.Logging.Level)
	}

	// File values override defaults
	if cfg.Storage.Root != "/data/fileflow" {
		t.Errorf("Expected Storage Root '/data/fileflow', got '%s'", cfg.Storage.Root)
	}
	if cfg.Upload.DefaultChunkSize != 1048576 {
		t.Errorf("Expected Upload DefaultChunkSize 1048576, got %d", cfg.Upload.DefaultChunkSize)
	}
	if cfg.Upload.SessionTTL.Std() != 2*time.Hour {
		t.Errorf("Expected Upload SessionTTL 2h, got %v", cfg.Upload.SessionTTL)
	}
	if cfg.Transform.Workers != 8 {
		t.Errorf("Expected Transform Workers 8, got %d", cfg.Transform.Workers)
	}

	// Defaults survive where nothing overrides
	if cfg.Download.DefaultChunkSize != 5*1024*1024 {
		t.Errorf("Expected Download DefaultChunkSize default, got %d", cfg.Download.DefaultChunkSize)
	}

	if path != configFile {
		t.Errorf("Expected config path '%s', got '%s'", configFile, path)
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func(mutate func(*Config)) Config {
		cfg := DefaultConfig
		mutate(&cfg)
		return cfg
	}

	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      DefaultConfig,
			expectError: false,
		},
		{
			name:        "invalid port - too low",
			config:      valid(func(c *Config) { c.Server.Port = 0 }),
			expectError: true,
			errorMsg:    "invalid server port",
		},
		{
			name:        "invalid port - too high",
			config:      valid(func(c *Config) { c.Server.Port = 70000 }),
			expectError: true,
			errorMsg:    "invalid server port",
		},
		{
			name:        "unknown storage backend",
			config:      valid(func(c *Config) { c.Storage.Backend = "tape" }),
			expectError: true,
			errorMsg:    "unknown storage backend",
		},
		{
			name:        "relative storage root",
			config:      valid(func(c *Config) { c.Storage.Root = "relative/path" }),
			expectError: true,
			errorMsg:    "absolute path",
		},
		{
			name: "minio backend missing endpoint",
			config: valid(func(c *Config) {
				c.Storage.Backend = "minio"
				c.Storage.Minio.Bucket = "files"
			}),
			expectError: true,
			errorMsg:    "minio endpoint required",
		},
		{
			name: "minio backend missing bucket",
			config: valid(func(c *Config) {
				c.Storage.Backend = "minio"
				c.Storage.Minio.Endpoint = "localhost:9000"
			}),
			expectError: true,
			errorMsg:    "minio bucket required",
		},
		{
			name:        "zero chunk size",
			config:      valid(func(c *Config) { c.Upload.DefaultChunkSize = 0 }),
			expectError: true,
			errorMsg:    "invalid default chunk size",
		},
		{
			name:        "max chunk below default",
			config:      valid(func(c *Config) { c.Upload.MaxChunkSize = 1024 }),
			expectError: true,
			errorMsg:    "below default chunk size",
		},
		{
			name:        "zero transform workers",
			config:      valid(func(c *Config) { c.Transform.Workers = 0 }),
			expectError: true,
			errorMsg:    "invalid transform worker count",
		},
		{
			name:        "zero heavy concurrency",
			config:      valid(func(c *Config) { c.Transform.HeavyConcurrency = 0 }),
			expectError: true,
			errorMsg:    "invalid heavy transform concurrency",
		},
		{
			name:        "zero sweep interval",
			config:      valid(func(c *Config) { c.Retention.SweepInterval = 0 }),
			expectError: true,
			errorMsg:    "invalid sweep interval",
		},
		{
			name:        "invalid log level",
			config:      valid(func(c *Config) { c.Logging.Level = "LOUD" }),
			expectError: true,
			errorMsg:    "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected validation error for %s, but got none", tt.name)
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error message to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected validation error for %s: %v", tt.name, err)
				}
			}
		})
	}
}

func TestConvenienceMethods(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Address: "test.example.com",
			Port:    9999,
		},
		Storage: StorageConfig{
			Root: "/var/lib/fileflow",
		},
	}

	if addr := cfg.GetServerAddress(); addr != "test.example.com:9999" {
		t.Errorf("Expected GetServerAddress 'test.example.com:9999', got '%s'", addr)
	}

	if dir := cfg.EffectiveWorkDir(); dir != "/var/lib/fileflow/work" {
		t.Errorf("Expected EffectiveWorkDir '/var/lib/fileflow/work', got '%s'", dir)
	}

	cfg.Transform.WorkDir = "/scratch"
	if dir := cfg.EffectiveWorkDir(); dir != "/scratch" {
		t.Errorf("Expected EffectiveWorkDir '/scratch', got '%s'", dir)
	}
}

func TestGenerateDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")

	if err := GenerateDefaultConfig(path); err != nil {
		t.Fatalf("GenerateDefaultConfig failed: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != DefaultConfig.Server.Port {
		t.Errorf("Expected round-tripped port %d, got %d", DefaultConfig.Server.Port, cfg.Server.Port)
	}
	if cfg.Upload.SessionTTL != DefaultConfig.Upload.SessionTTL {
		t.Errorf("Expected round-tripped session TTL %v, got %v", DefaultConfig.Upload.SessionTTL, cfg.Upload.SessionTTL)
	}
}
