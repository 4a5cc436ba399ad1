package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all certd configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// Document store (SQLite)
	Storage StorageConfig `yaml:"storage"`

	// Session store
	Session SessionConfig `yaml:"session"`

	// External services
	Integrations IntegrationsConfig `yaml:"integrations"`

	// Validation thresholds and rule flags
	Validation ValidationConfig `yaml:"validation"`

	// Notification templates and blob polling
	Notifications NotificationsConfig `yaml:"notifications"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Tracing export
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr            string `yaml:"addr" env:"CERTD_ADDR"`
	ShutdownTimeout string `yaml:"shutdown_timeout" env:"CERTD_SHUTDOWN_TIMEOUT"`
}

// StorageConfig configures the SQLite document store.
type StorageConfig struct {
	// Driver is "sqlite3" (cgo, mattn) or "sqlite" (pure Go, modernc).
	Driver       string `yaml:"driver" env:"CERTD_DB_DRIVER"`
	DatabasePath string `yaml:"database_path" env:"CERTD_DB"`
}

// SessionConfig selects and configures the session store backend.
type SessionConfig struct {
	Backend   string `yaml:"backend" env:"CERTD_SESSION_BACKEND"` // memory, redis
	RedisAddr string `yaml:"redis_addr" env:"CERTD_REDIS_ADDR"`
	RedisDB   int    `yaml:"redis_db" env:"CERTD_REDIS_DB"`
	TTL       string `yaml:"ttl" env:"CERTD_SESSION_TTL"`
}

// TelemetryConfig configures OTLP trace export. Tracing stays off while the
// endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string  `yaml:"otlp_endpoint" env:"CERTD_OTEL_ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio" env:"CERTD_OTEL_SAMPLE_RATIO"`
}

// Enabled reports whether spans should be exported.
func (t TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "certd",
		Version: "1.0.0",

		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "15s",
		},

		Storage: StorageConfig{
			Driver:       "sqlite3",
			DatabasePath: "data/certd.db",
		},

		Session: SessionConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       "24h",
		},

		Integrations: DefaultIntegrations(),
		Validation:   DefaultValidation(),

		Notifications: NotificationsConfig{
			SuccessTemplateID:        "cc-submission-success",
			FailureTemplateID:        "cc-submission-failure",
			TechnicalErrorTemplateID: "cc-technical-error",
			BlobPollAttempts:         5,
			BlobPollInterval:         "2s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		Telemetry: TelemetryConfig{
			SampleRatio: 1,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults apply when no config file exists
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Only variables that are set replace the loaded values.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to apply env overrides: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("invalid storage driver: %s (valid: sqlite3, sqlite)", c.Storage.Driver)
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session backend redis requires redis_addr")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (valid: memory, redis)", c.Session.Backend)
	}
	if err := c.Integrations.Validate(); err != nil {
		return err
	}
	if err := c.Validation.Validate(); err != nil {
		return err
	}
	if c.Notifications.BlobPollAttempts < 1 {
		return fmt.Errorf("blob_poll_attempts must be >= 1")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample_ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio)
	}
	return nil
}

// GetShutdownTimeout returns the server shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

// GetSessionTTL returns the session TTL as a duration.
func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, 24*time.Hour)
}

// GetBlobPollInterval returns the blob polling interval as a duration.
func (c *Config) GetBlobPollInterval() time.Duration {
	return c.Notifications.GetBlobPollInterval()
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
