// Package config holds the connection and presentation settings for expdb.
// Values come from command-line flags, EXPDB_* environment variables (a local
// .env file included) and an optional YAML config file, in that priority order.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backends understood by the CLI.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default configuration values.
const (
	DefaultHost                    = "localhost"
	DefaultPort                    = 27017
	DefaultDatabaseName            = "simulations"
	DefaultBackend                 = BackendMongo
	DefaultSQLitePath              = "experiments.db"
	DefaultTimeout                 = 10 * time.Second
	DefaultConfigurationCollection = "configuration"
	DefaultHistoryCollection       = "history"
	DefaultFormat                  = "text"
	DefaultEnvFile                 = ".env"

	// EnvPrefix prefixes every environment variable, e.g. EXPDB_DATABASE_NAME.
	EnvPrefix = "EXPDB"
)

// Config is the complete runtime configuration.
type Config struct {
	Host                    string        `mapstructure:"host" yaml:"host"`
	Port                    int           `mapstructure:"port" yaml:"port"`
	DatabaseName            string        `mapstructure:"database-name" yaml:"database-name"`
	Backend                 string        `mapstructure:"backend" yaml:"backend"`
	SQLitePath              string        `mapstructure:"sqlite-path" yaml:"sqlite-path"`
	Timeout                 time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ConfigurationCollection string        `mapstructure:"configuration-collection" yaml:"configuration-collection"`
	HistoryCollection       string        `mapstructure:"history-collection" yaml:"history-collection"`
	LogLevel                string        `mapstructure:"log-level" yaml:"log-level"`
	LogFile                 string        `mapstructure:"log-file" yaml:"log-file"`
	Format                  string        `mapstructure:"format" yaml:"format"`
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	return &Config{
		Host:                    DefaultHost,
		Port:                    DefaultPort,
		DatabaseName:            DefaultDatabaseName,
		Backend:                 DefaultBackend,
		SQLitePath:              DefaultSQLitePath,
		Timeout:                 DefaultTimeout,
		ConfigurationCollection: DefaultConfigurationCollection,
		HistoryCollection:       DefaultHistoryCollection,
		Format:                  DefaultFormat,
	}
}

// Address returns host:port.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MongoURI returns the connection string for the MongoDB backend.
func (c *Config) MongoURI() string {
	return "mongodb://" + c.Address()
}

// Validate checks values that would otherwise fail later with a less useful error.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendMongo:
		if c.Host == "" {
			errs = append(errs, errors.New("host must not be empty"))
		}
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
		}
		if c.DatabaseName == "" {
			errs = append(errs, errors.New("database-name must not be empty"))
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite-path must not be empty"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (use %s|%s|%s)", c.Backend, BackendMongo, BackendSQLite, BackendMemory))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.ConfigurationCollection == "" || c.HistoryCollection == "" {
		errs = append(errs, errors.New("collection names must not be empty"))
	}
	return errors.Join(errs...)
}

// SetDefaults registers every default with v so environment variables and
// config file keys are recognised even when no flag is bound.
func SetDefaults(v *viper.Viper) {
	d := NewConfig()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("database-name", d.DatabaseName)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("sqlite-path", d.SQLitePath)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("configuration-collection", d.ConfigurationCollection)
	v.SetDefault("history-collection", d.HistoryCollection)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-file", d.LogFile)
	v.SetDefault("format", d.Format)
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration from flags, environment and configFile (optional).
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := NewConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
