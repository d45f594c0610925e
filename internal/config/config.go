// Package config loads DataQuery settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/dataquerypro/dataquery/internal/filestore"
	"github.com/dataquerypro/dataquery/internal/logger"
)

// Config holds all configuration for dataquery.
// Environment variables always override YAML values.
// Secrets (storage keys) only come from the environment.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Jobs          JobsConfig          `yaml:"jobs"`
	Store         StoreConfig         `yaml:"store"`
	Introspection IntrospectionConfig `yaml:"introspection"`

	Version string `yaml:"-"` // set at load time
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	BindAddr        string        `yaml:"bind_addr" env:"DATAQUERY_BIND_ADDR" env-default:"127.0.0.1"`
	Port            string        `yaml:"port" env:"DATAQUERY_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"DATAQUERY_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"DATAQUERY_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"DATAQUERY_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.BindAddr, s.Port)
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"DATAQUERY_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"DATAQUERY_LOG_FORMAT" env-default:"json"`
}

// JobsConfig configures the job tracker and polling clients.
type JobsConfig struct {
	// GracePeriod is how long a finished job stays pollable.
	GracePeriod time.Duration `yaml:"grace_period" env:"DATAQUERY_JOB_GRACE_PERIOD" env-default:"5m"`
	// PollInterval is the delay between two status requests of a client.
	PollInterval time.Duration `yaml:"poll_interval" env:"DATAQUERY_POLL_INTERVAL" env-default:"2s"`
}

// StoreConfig configures where baselines are kept.
type StoreConfig struct {
	Provider  string `yaml:"provider" env:"DATAQUERY_STORE_PROVIDER" env-default:"memory"`
	Endpoint  string `yaml:"endpoint" env:"DATAQUERY_STORE_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"-" env:"DATAQUERY_STORE_ACCESS_KEY"` // Secret - not in YAML
	SecretKey string `yaml:"-" env:"DATAQUERY_STORE_SECRET_KEY"` // Secret - not in YAML
	UseSSL    bool   `yaml:"use_ssl" env:"DATAQUERY_STORE_USE_SSL" env-default:"false"`
	Region    string `yaml:"region" env:"DATAQUERY_STORE_REGION" env-default:""`
	Bucket    string `yaml:"bucket" env:"DATAQUERY_STORE_BUCKET" env-default:"dataquery"`
}

// IntrospectionConfig configures catalog reads.
type IntrospectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DATAQUERY_CONNECT_TIMEOUT" env-default:"10s"`
}

// Load reads path (when non-empty) and applies environment overrides.
// With an empty path only the environment and defaults are used.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints cleanenv cannot express.
func (c *Config) Validate() error {
	var problems []error

	switch filestore.Provider(c.Store.Provider) {
	case filestore.ProviderMemory:
	case filestore.ProviderMinIO:
		if c.Store.Endpoint == "" {
			problems = append(problems, errors.New("store.endpoint is required for the minio provider"))
		}
		if c.Store.Bucket == "" {
			problems = append(problems, errors.New("store.bucket is required for the minio provider"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown store.provider %q", c.Store.Provider))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if c.Jobs.GracePeriod <= 0 {
		problems = append(problems, errors.New("jobs.grace_period must be positive"))
	}
	if c.Jobs.PollInterval <= 0 {
		problems = append(problems, errors.New("jobs.poll_interval must be positive"))
	}

	return errors.Join(problems...)
}

// LoggerConfig converts the log section into a logger.Config.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}

// FilestoreConfig converts the store section into a filestore.Config.
func (c *Config) FilestoreConfig() *filestore.Config {
	return &filestore.Config{
		Provider:      filestore.Provider(c.Store.Provider),
		Endpoint:      c.Store.Endpoint,
		AccessKey:     c.Store.AccessKey,
		SecretKey:     c.Store.SecretKey,
		UseSSL:        c.Store.UseSSL,
		Region:        c.Store.Region,
		DefaultBucket: c.Store.Bucket,
	}
}
