// Package config handles configuration loading for niftyfolio.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Investment amount bounds in rupees.
const (
	MinInvestment = 1000
	MaxInvestment = 100000000 // ₹10 crore
)

// Config represents the complete application configuration.
type Config struct {
	Investment InvestmentConfig `mapstructure:"investment" yaml:"investment"`
	Fetch      FetchConfig      `mapstructure:"fetch"      yaml:"fetch"`
	Paths      PathsConfig      `mapstructure:"paths"      yaml:"paths"`
	News       NewsConfig       `mapstructure:"news"       yaml:"news"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// InvestmentConfig holds budget validation bounds.
type InvestmentConfig struct {
	MinAmount float64 `mapstructure:"min_amount" yaml:"min_amount"`
	MaxAmount float64 `mapstructure:"max_amount" yaml:"max_amount"`
}

// FetchConfig holds price resolution settings.
type FetchConfig struct {
	TimeoutSec     int `mapstructure:"timeout_sec"      yaml:"timeout_sec"`
	MaxRetries     int `mapstructure:"max_retries"      yaml:"max_retries"`
	BackoffBaseSec int `mapstructure:"backoff_base_sec" yaml:"backoff_base_sec"`
	BackoffCapSec  int `mapstructure:"backoff_cap_sec"  yaml:"backoff_cap_sec"`
	Concurrency    int `mapstructure:"concurrency"      yaml:"concurrency"`
}

// Timeout returns the per-lookup timeout as a duration.
func (f FetchConfig) Timeout() time.Duration { return time.Duration(f.TimeoutSec) * time.Second }

// BackoffBase returns the initial retry delay as a duration.
func (f FetchConfig) BackoffBase() time.Duration {
	return time.Duration(f.BackoffBaseSec) * time.Second
}

// BackoffCap returns the retry delay ceiling as a duration.
func (f FetchConfig) BackoffCap() time.Duration { return time.Duration(f.BackoffCapSec) * time.Second }

// PathsConfig holds input and output file locations.
type PathsConfig struct {
	SecuritiesFile  string `mapstructure:"securities_file"  yaml:"securities_file"`
	OutputDir       string `mapstructure:"output_dir"       yaml:"output_dir"`
	ConstituentsURL string `mapstructure:"constituents_url" yaml:"constituents_url"`
}

// NewsConfig holds market news settings.
type NewsConfig struct {
	Limit int `mapstructure:"limit" yaml:"limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"       yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"      yaml:"format"` // "console" or "json"
	OutputFile string `mapstructure:"output_file" yaml:"output_file"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.niftyfolio/config.yaml (home directory)
//  3. /etc/niftyfolio/config.yaml (system)
//
// Environment variables override config file values.
// Format: NIFTYFOLIO_<SECTION>_<KEY>, e.g., NIFTYFOLIO_FETCH_MAX_RETRIES
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".niftyfolio"))
	v.AddConfigPath("/etc/niftyfolio")

	v.SetEnvPrefix("NIFTYFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; defaults + env vars are enough to run.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("NIFTYFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// ValidateAmount checks an investment amount against the configured bounds.
func (c *Config) ValidateAmount(amount float64) error {
	if amount < c.Investment.MinAmount {
		return fmt.Errorf("investment amount ₹%.2f is below the minimum ₹%.2f", amount, c.Investment.MinAmount)
	}
	if amount > c.Investment.MaxAmount {
		return fmt.Errorf("investment amount ₹%.2f exceeds the maximum ₹%.2f", amount, c.Investment.MaxAmount)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("investment.min_amount", MinInvestment)
	v.SetDefault("investment.max_amount", MaxInvestment)

	v.SetDefault("fetch.timeout_sec", 10)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_base_sec", 1)
	v.SetDefault("fetch.backoff_cap_sec", 30)
	v.SetDefault("fetch.concurrency", 5)

	v.SetDefault("paths.securities_file", "data/nifty100_securities.csv")
	v.SetDefault("paths.output_dir", "output")
	v.SetDefault("paths.constituents_url", "https://www.niftyindices.com/IndexConstituent/ind_nifty100list.csv")

	v.SetDefault("news.limit", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_file", "")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
