package config

import (
	"fmt"
	"net/url"
	"os"
)

const defaultServerURL = "http://localhost:8080"

// CLIConfig holds client-side settings for flowctl.
type CLIConfig struct {
	ServerURL string
}

// LoadCLIConfig builds the default CLI configuration, honoring the
// FLOWCTL_SERVER environment variable when set.
func LoadCLIConfig() *CLIConfig {
	cfg := &CLIConfig{
		ServerURL: defaultServerURL,
	}

	if val := os.Getenv("FLOWCTL_SERVER"); val != "" {
		cfg.ServerURL = val
	}

	return cfg
}

func (c *CLIConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL must use http or https, got %q", c.ServerURL)
	}
	return nil
}
