package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Watched files
	LogFile            string        `yaml:"log_file"`   // lpreserver daemon log
	ErrorFile          string        `yaml:"error_file"` // backend error indicator
	ErrorCheckInterval time.Duration `yaml:"error_check_interval"`

	// Persistence of read cursors and latest status, disabled when empty
	StateDBPath string `yaml:"state_db_path"`

	// Observability
	LogLevel        string `yaml:"log_level"`
	LogOutput       string `yaml:"log_output"` // optional file for our own logs
	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
	TracingProtocol string `yaml:"tracing_protocol"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		LogFile:            "/var/log/lpreserver/lpreserver.log",
		ErrorFile:          "/var/log/lpreserver/error.log",
		ErrorCheckInterval: 10 * time.Minute,
		LogLevel:           "info",
		TracingProtocol:    "grpc",
	}
}

// Load loads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables. Environment variables take precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.ErrorFile = getEnv("ERROR_FILE", cfg.ErrorFile)
	cfg.ErrorCheckInterval = getEnvDuration("ERROR_CHECK_INTERVAL", cfg.ErrorCheckInterval)
	cfg.StateDBPath = getEnv("STATE_DB_PATH", cfg.StateDBPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogOutput = getEnv("LOG_OUTPUT", cfg.LogOutput)
	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingEndpoint = getEnv("TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingProtocol = getEnv("TRACING_PROTOCOL", cfg.TracingProtocol)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays values from a YAML file
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.LogFile == "" {
		return fmt.Errorf("LOG_FILE is required")
	}
	if c.ErrorCheckInterval <= 0 {
		return fmt.Errorf("ERROR_CHECK_INTERVAL must be positive")
	}
	if c.TracingEnabled && c.TracingProtocol != "grpc" && c.TracingProtocol != "http" {
		return fmt.Errorf("TRACING_PROTOCOL must be grpc or http")
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable ("10m", "30s") or
// returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
