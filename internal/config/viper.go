package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	Organization struct {
		Name     string `mapstructure:"name" yaml:"name"`
		Timezone string `mapstructure:"timezone" yaml:"timezone"`
		Currency string `mapstructure:"currency" yaml:"currency"`
	} `mapstructure:"organization" yaml:"organization"`

	Statement struct {
		Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
		DateFormat string `mapstructure:"date_format" yaml:"date_format"`
	} `mapstructure:"statement" yaml:"statement"`

	Ledger struct {
		RulesFile       string `mapstructure:"rules_file" yaml:"rules_file"`
		DefaultGLCode   string `mapstructure:"default_gl_code" yaml:"default_gl_code"`
		DuesPaymentType string `mapstructure:"dues_payment_type" yaml:"dues_payment_type"`
	} `mapstructure:"ledger" yaml:"ledger"`

	Email struct {
		Maildir        string   `mapstructure:"maildir" yaml:"maildir"`
		IgnoredSenders []string `mapstructure:"ignored_senders" yaml:"ignored_senders"`
		Boilerplate    []string `mapstructure:"boilerplate" yaml:"boilerplate"`
	} `mapstructure:"email" yaml:"email"`
}

// DatabaseConfig selects and tunes the relational store.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver"`
	DSN          string `mapstructure:"dsn" yaml:"dsn"`
	LogMode      bool   `mapstructure:"log_mode" yaml:"log_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading:
// defaults, then config.yaml, then LEDGER_* environment variables.
// A non-empty path selects an explicit config file.
func InitializeConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.church-ledger")
		v.AddConfigPath(".church-ledger")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/ledger.db")
	v.SetDefault("database.log_mode", false)
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("organization.name", "")
	v.SetDefault("organization.timezone", "America/New_York")
	v.SetDefault("organization.currency", "USD")

	v.SetDefault("statement.delimiter", ",")
	v.SetDefault("statement.date_format", "01/02/2006")

	v.SetDefault("ledger.rules_file", "")
	v.SetDefault("ledger.default_gl_code", "4900")
	v.SetDefault("ledger.dues_payment_type", "membership_due")

	v.SetDefault("email.maildir", "")
	v.SetDefault("email.ignored_senders", []string{})
	v.SetDefault("email.boilerplate", []string{})
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s (must be 'sqlite' or 'postgres')", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}

	if _, err := time.LoadLocation(config.Organization.Timezone); err != nil {
		return fmt.Errorf("invalid organization.timezone %q: %w", config.Organization.Timezone, err)
	}

	if len([]rune(config.Statement.Delimiter)) != 1 {
		return fmt.Errorf("statement delimiter must be a single character, got: %q", config.Statement.Delimiter)
	}

	if config.Ledger.DefaultGLCode == "" {
		return fmt.Errorf("ledger.default_gl_code must not be empty")
	}

	return nil
}

// Location returns the organization's time zone. validateConfig guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Organization.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DelimiterRune returns the statement delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r := []rune(c.Statement.Delimiter)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}
