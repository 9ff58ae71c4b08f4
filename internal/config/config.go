package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cdtdelta/dbhelper/internal/database"
	"github.com/cdtdelta/dbhelper/internal/logging"
)

// Environment variables that override file values.
const (
	EnvDriver   = "DBHELPER_DRIVER"
	EnvDSN      = "DBHELPER_DSN"
	EnvLogLevel = "DBHELPER_LOG_LEVEL"
)

// Config is the dbhelper configuration file.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Builder  BuilderConfig  `yaml:"builder"`
}

// DatabaseConfig selects the backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// BindVars makes the builder send values as bound parameters instead
	// of escaped literals.
	BindVars bool `yaml:"bind_vars"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// HTTPConfig configures the transfer client.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	VerifyTLS bool          `yaml:"verify_tls"`
}

// BuilderConfig configures the statement builder.
type BuilderConfig struct {
	// Timezone is the IANA zone timestamps are normalized into.
	Timezone string `yaml:"timezone"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	logDefaults := logging.DefaultConfig()
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "dbhelper.db"},
		Log:      LogConfig{Level: logDefaults.Level, Pretty: logDefaults.Pretty},
		HTTP:     HTTPConfig{Timeout: 30 * time.Second, VerifyTLS: true},
		Builder:  BuilderConfig{Timezone: "UTC"},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults. The result
// is not validated so callers can apply their own overrides first; call
// Validate before use.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the driver is supported and the timezone loads.
func (c *Config) Validate() error {
	if _, err := database.DialectFor(c.Database.Driver); err != nil {
		return fmt.Errorf("invalid database.driver: %w", err)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("invalid http.timeout: %s is negative", c.HTTP.Timeout)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid builder.timezone: %w", err)
	}
	return nil
}

// Location loads the builder timezone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Builder.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Builder.Timezone)
}
