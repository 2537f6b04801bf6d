package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs accept "30s"/"2h" forms
// as well as bare nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return err
		}
		*d = Duration(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Std returns the wrapped standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Upload    UploadConfig    `yaml:"upload" json:"upload"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Transform TransformConfig `yaml:"transform" json:"transform"`
	Cloud     CloudConfig     `yaml:"cloud" json:"cloud"`
	Retention RetentionConfig `yaml:"retention" json:"retention"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Address           string   `yaml:"address" json:"address"`
	Port              int      `yaml:"port" json:"port"`
	ReadHeaderTimeout Duration `yaml:"readHeaderTimeout" json:"readHeaderTimeout"`
	IdleTimeout       Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout   Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
}

// StorageConfig selects and configures the blob backend holding staged
// chunks and finished files.
type StorageConfig struct {
	// Backend is "local" or "minio"
	Backend string      `yaml:"backend" json:"backend"`
	Root    string      `yaml:"root" json:"root"`
	Minio   MinioConfig `yaml:"minio" json:"minio"`
}

// MinioConfig configures the S3-compatible object storage backend
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"accessKey" json:"accessKey"`
	SecretKey string `yaml:"secretKey" json:"secretKey"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	UseSSL    bool   `yaml:"useSSL" json:"useSSL"`
}

// UploadConfig holds upload session defaults
type UploadConfig struct {
	DefaultChunkSize int64    `yaml:"defaultChunkSize" json:"defaultChunkSize"`
	MaxChunkSize     int64    `yaml:"maxChunkSize" json:"maxChunkSize"`
	SessionTTL       Duration `yaml:"sessionTTL" json:"sessionTTL"`
	// FileTTL applies to files produced by completed uploads; zero keeps
	// them until explicitly deleted
	FileTTL Duration `yaml:"fileTTL" json:"fileTTL"`
}

// DownloadConfig holds download planning defaults
type DownloadConfig struct {
	DefaultChunkSize int64 `yaml:"defaultChunkSize" json:"defaultChunkSize"`
}

// TransformConfig bounds the job engine
type TransformConfig struct {
	Workers   int `yaml:"workers" json:"workers"`
	QueueSize int `yaml:"queueSize" json:"queueSize"`
	// HeavyConcurrency caps how many transcode/extract-audio jobs run at
	// once; other kinds are bounded only by Workers
	HeavyConcurrency int    `yaml:"heavyConcurrency" json:"heavyConcurrency"`
	WorkDir          string `yaml:"workDir" json:"workDir"`
	FFmpegPath       string `yaml:"ffmpegPath" json:"ffmpegPath"`
}

// CloudConfig holds per-provider fallbacks; request credentials always
// take precedence and are never persisted.
type CloudConfig struct {
	S3    S3Config    `yaml:"s3" json:"s3"`
	GCS   GCSConfig   `yaml:"gcs" json:"gcs"`
	Azure AzureConfig `yaml:"azure" json:"azure"`
	Retry RetryConfig `yaml:"retry" json:"retry"`
}

type S3Config struct {
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"accessKey" json:"accessKey"`
	SecretKey string `yaml:"secretKey" json:"secretKey"`
	PathStyle bool   `yaml:"pathStyle" json:"pathStyle"`
}

type GCSConfig struct {
	CredentialsFile string `yaml:"credentialsFile" json:"credentialsFile"`
}

type AzureConfig struct {
	AccountName string `yaml:"accountName" json:"accountName"`
	AccountKey  string `yaml:"accountKey" json:"accountKey"`
}

// RetryConfig bounds retries of idempotent provider calls
type RetryConfig struct {
	MaxAttempts int      `yaml:"maxAttempts" json:"maxAttempts"`
	BaseDelay   Duration `yaml:"baseDelay" json:"baseDelay"`
}

// RetentionConfig drives the expiry sweeper
type RetentionConfig struct {
	SweepInterval Duration `yaml:"sweepInterval" json:"sweepInterval"`
	// JobRetention keeps terminal job records around for status polling
	// before they are pruned
	JobRetention Duration `yaml:"jobRetention" json:"jobRetention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Output string `yaml:"output" json:"output"`
}

// DefaultConfig Default configuration values
var DefaultConfig = Config{
	Server: ServerConfig{
		Address:           "0.0.0.0",
		Port:              8080,
		ReadHeaderTimeout: Duration(10 * time.Second),
		IdleTimeout:       Duration(120 * time.Second),
		ShutdownTimeout:   Duration(10 * time.Second),
	},
	Storage: StorageConfig{
		Backend: "local",
		Root:    "/var/lib/fileflow",
	},
	Upload: UploadConfig{
		DefaultChunkSize: 5 * 1024 * 1024,
		MaxChunkSize:     64 * 1024 * 1024,
		SessionTTL:       Duration(24 * time.Hour),
		FileTTL:          0,
	},
	Download: DownloadConfig{
		DefaultChunkSize: 5 * 1024 * 1024,
	},
	Transform: TransformConfig{
		Workers:          4,
		QueueSize:        64,
		HeavyConcurrency: 1,
		FFmpegPath:       "ffmpeg",
	},
	Cloud: CloudConfig{
		S3: S3Config{
			Region: "us-east-1",
		},
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelay:   Duration(200 * time.Millisecond),
		},
	},
	Retention: RetentionConfig{
		SweepInterval: Duration(5 * time.Minute),
		JobRetention:  Duration(24 * time.Hour),
	},
	Logging: LoggingConfig{
		Level:  "INFO",
		Output: "stdout",
	},
}

// LoadConfig loads configuration from multiple sources in order of precedence:
// 1. Environment variables (highest precedence)
// 2. Configuration file
// 3. Default values (lowest precedence)
func LoadConfig() (*Config, string, error) {
	config := DefaultConfig

	path, err := loadFromFile(&config)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	loadFromEnv(&config)

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

// loadFromFile loads configuration from the first YAML file found
func loadFromFile(config *Config) (string, error) {
	configPaths := []string{
		os.Getenv("FILEFLOW_CONFIG_PATH"), // Custom path from environment
		"./fileflow.yaml",                 // Current directory
		"./config/fileflow.yaml",          // Config subdirectory
		"/etc/fileflow/config.yaml",       // System-wide
	}

	for _, path := range configPaths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		return path, nil
	}

	return "built-in defaults (no config file found)", nil
}

// loadFromEnv overrides configuration from environment variables
func loadFromEnv(config *Config) {
	if val := os.Getenv("FILEFLOW_SERVER_ADDRESS"); val != "" {
		config.Server.Address = val
	}
	if val := os.Getenv("FILEFLOW_SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.Port = port
		}
	}

	if val := os.Getenv("FILEFLOW_STORAGE_BACKEND"); val != "" {
		config.Storage.Backend = val
	}
	if val := os.Getenv("FILEFLOW_STORAGE_ROOT"); val != "" {
		config.Storage.Root = val
	}
	if val := os.Getenv("FILEFLOW_MINIO_ENDPOINT"); val != "" {
		config.Storage.Minio.Endpoint = val
	}
	if val := os.Getenv("FILEFLOW_MINIO_ACCESS_KEY"); val != "" {
		config.Storage.Minio.AccessKey = val
	}
	if val := os.Getenv("FILEFLOW_MINIO_SECRET_KEY"); val != "" {
		config.Storage.Minio.SecretKey = val
	}
	if val := os.Getenv("FILEFLOW_MINIO_BUCKET"); val != "" {
		config.Storage.Minio.Bucket = val
	}

	if val := os.Getenv("FILEFLOW_UPLOAD_CHUNK_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Upload.DefaultChunkSize = size
		}
	}
	if val := os.Getenv("FILEFLOW_SESSION_TTL"); val != "" {
		if ttl, err := time.ParseDuration(val); err == nil {
			config.Upload.SessionTTL = Duration(ttl)
		}
	}
	if val := os.Getenv("FILEFLOW_FILE_TTL"); val != "" {
		if ttl, err := time.ParseDuration(val); err == nil {
			config.Upload.FileTTL = Duration(ttl)
		}
	}

	if val := os.Getenv("FILEFLOW_TRANSFORM_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transform.Workers = n
		}
	}
	if val := os.Getenv("FILEFLOW_TRANSFORM_QUEUE_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transform.QueueSize = n
		}
	}
	if val := os.Getenv("FILEFLOW_TRANSFORM_HEAVY_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transform.HeavyConcurrency = n
		}
	}
	if val := os.Getenv("FILEFLOW_FFMPEG_PATH"); val != "" {
		config.Transform.FFmpegPath = val
	}

	if val := os.Getenv("FILEFLOW_S3_REGION"); val != "" {
		config.Cloud.S3.Region = val
	}
	if val := os.Getenv("FILEFLOW_S3_ENDPOINT"); val != "" {
		config.Cloud.S3.Endpoint = val
	}
	if val := os.Getenv("FILEFLOW_GCS_CREDENTIALS_FILE"); val != "" {
		config.Cloud.GCS.CredentialsFile = val
	}
	if val := os.Getenv("FILEFLOW_AZURE_ACCOUNT_NAME"); val != "" {
		config.Cloud.Azure.AccountName = val
	}
	if val := os.Getenv("FILEFLOW_AZURE_ACCOUNT_KEY"); val != "" {
		config.Cloud.Azure.AccountKey = val
	}

	if val := os.Getenv("FILEFLOW_SWEEP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Retention.SweepInterval = Duration(d)
		}
	}
	if val := os.Getenv("FILEFLOW_JOB_RETENTION"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Retention.JobRetention = Duration(d)
		}
	}

	if val := os.Getenv("FILEFLOW_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("FILEFLOW_LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.Root == "" {
			return fmt.Errorf("storage root required for local backend")
		}
		if !filepath.IsAbs(c.Storage.Root) {
			return fmt.Errorf("storage root must be an absolute path: %s", c.Storage.Root)
		}
	case "minio":
		if c.Storage.Minio.Endpoint == "" {
			return fmt.Errorf("minio endpoint required for minio backend")
		}
		if c.Storage.Minio.Bucket == "" {
			return fmt.Errorf("minio bucket required for minio backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.Upload.DefaultChunkSize < 1 {
		return fmt.Errorf("invalid default chunk size: %d", c.Upload.DefaultChunkSize)
	}
	if c.Upload.MaxChunkSize < c.Upload.DefaultChunkSize {
		return fmt.Errorf("max chunk size %d below default chunk size %d", c.Upload.MaxChunkSize, c.Upload.DefaultChunkSize)
	}
	if c.Upload.SessionTTL <= 0 {
		return fmt.Errorf("invalid session TTL: %s", c.Upload.SessionTTL)
	}
	if c.Upload.FileTTL < 0 {
		return fmt.Errorf("invalid file TTL: %s", c.Upload.FileTTL)
	}

	if c.Download.DefaultChunkSize < 1 {
		return fmt.Errorf("invalid download chunk size: %d", c.Download.DefaultChunkSize)
	}

	if c.Transform.Workers < 1 {
		return fmt.Errorf("invalid transform worker count: %d", c.Transform.Workers)
	}
	if c.Transform.QueueSize < 1 {
		return fmt.Errorf("invalid transform queue size: %d", c.Transform.QueueSize)
	}
	if c.Transform.HeavyConcurrency < 1 {
		return fmt.Errorf("invalid heavy transform concurrency: %d", c.Transform.HeavyConcurrency)
	}

	if c.Cloud.Retry.MaxAttempts < 1 {
		return fmt.Errorf("invalid cloud retry attempts: %d", c.Cloud.Retry.MaxAttempts)
	}
	if c.Cloud.Retry.BaseDelay <= 0 {
		return fmt.Errorf("invalid cloud retry base delay: %s", c.Cloud.Retry.BaseDelay)
	}

	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("invalid sweep interval: %s", c.Retention.SweepInterval)
	}
	if c.Retention.JobRetention < 0 {
		return fmt.Errorf("invalid job retention: %s", c.Retention.JobRetention)
	}

	validLevels := map[string]bool{
		"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// EffectiveWorkDir returns the transform scratch directory, defaulting
// to a subdirectory of the storage root.
func (c *Config) EffectiveWorkDir() string {
	if c.Transform.WorkDir != "" {
		return c.Transform.WorkDir
	}
	return filepath.Join(c.Storage.Root, "work")
}

func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) SaveToFile(path string) error {
	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a specific configuration file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// GenerateDefaultConfig creates a default configuration file
func GenerateDefaultConfig(path string) error {
	config := DefaultConfig
	return config.SaveToFile(path)
}
