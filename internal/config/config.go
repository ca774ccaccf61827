// Package config loads process configuration from the environment.
//
// Values come from FINANCE_* variables. A .env file in the working directory
// is read first when present; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix of every setting.
const Prefix = "FINANCE"

// Config is the complete configuration of the dashboard binaries.
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Logging  LoggingConfig  `envconfig:"LOG"`
	BigQuery BigQueryConfig `envconfig:"BQ"`
	Export   ExportConfig   `envconfig:"EXPORT"`
	Feed     FeedConfig     `envconfig:"FEED"`
	Jobs     JobsConfig     `envconfig:"JOBS"`
	Gemini   GeminiConfig   `envconfig:"GEMINI"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"console"`
}

// BigQueryConfig locates the finance dataset.
type BigQueryConfig struct {
	ProjectID string `envconfig:"PROJECT_ID" default:"studious-union-470122-v7"`
	DatasetID string `envconfig:"DATASET_ID" default:"finance"`
	// LookbackDays limits the transactions read; zero reads everything.
	LookbackDays int `envconfig:"LOOKBACK_DAYS" default:"365"`
}

// ExportConfig holds the destinations of asynchronous exports.
type ExportConfig struct {
	Dir       string `envconfig:"DIR" default:"exports"`
	GCSBucket string `envconfig:"GCS_BUCKET"`
	GCSPrefix string `envconfig:"GCS_PREFIX" default:"exports"`
}

// FeedConfig controls the transaction refresh loop.
type FeedConfig struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
}

// JobsConfig sizes the export job queue.
type JobsConfig struct {
	QueueSize  int `envconfig:"QUEUE_SIZE" default:"100"`
	Workers    int `envconfig:"WORKERS" default:"5"`
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`
}

// GeminiConfig configures the transactions assistant. An empty project
// disables it.
type GeminiConfig struct {
	Project  string `envconfig:"PROJECT"`
	Location string `envconfig:"LOCATION" default:"us-central1"`
	Model    string `envconfig:"MODEL" default:"gemini-2.5-flash"`
}

// Load reads .env (if any) and then the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads the given dotenv file (if it exists) and then the
// environment.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("LoadFile: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("LoadFile: process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot constrain.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("Validate: server port is required")
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("Validate: poll interval must be positive, got %s", c.Feed.PollInterval)
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("Validate: jobs workers must be positive, got %d", c.Jobs.Workers)
	}
	if c.Jobs.QueueSize <= 0 {
		return fmt.Errorf("Validate: jobs queue size must be positive, got %d", c.Jobs.QueueSize)
	}
	if c.Jobs.MaxRetries < 0 {
		return fmt.Errorf("Validate: jobs max retries must not be negative, got %d", c.Jobs.MaxRetries)
	}
	if c.BigQuery.LookbackDays < 0 {
		return fmt.Errorf("Validate: lookback days must not be negative, got %d", c.BigQuery.LookbackDays)
	}
	return nil
}
