// Package config handles configuration loading for dbtmon.
// It supports the user config in ~/.dbt, project-level overrides,
// DBTMON_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "DBTMON"

// ProjectConfigName is the file looked up in the working directory and its
// parents for project-level overrides.
const ProjectConfigName = ".dbtmon.yml"

// Config holds all configuration for dbtmon.
type Config struct {
	// PollingRate is the seconds between redraws while waiting for input.
	PollingRate float64 `mapstructure:"polling-rate"`
	// MinimumWait is the seconds to wait for input before polling starts.
	MinimumWait float64 `mapstructure:"minimum-wait"`
	// BlockingThreshold is the seconds of solo runtime that flag a blocking model.
	BlockingThreshold float64 `mapstructure:"blocking-threshold"`
	// Width fixes the display width in columns. Zero queries the terminal.
	Width int `mapstructure:"width"`
	// Summary prints a run summary after the blocking report.
	Summary bool `mapstructure:"summary"`
	// DiagnosticsOnInterrupt runs the blocking report when the run is interrupted.
	DiagnosticsOnInterrupt bool `mapstructure:"diagnostics-on-interrupt"`
	// LogLevel is the zap level for diagnostics on stderr.
	LogLevel string `mapstructure:"log-level"`
	// LogEncoding is the zap encoding: console or json.
	LogEncoding string `mapstructure:"log-encoding"`
}

// PollingInterval returns PollingRate as a duration.
func (c *Config) PollingInterval() time.Duration {
	return seconds(c.PollingRate)
}

// GraceInterval returns MinimumWait as a duration.
func (c *Config) GraceInterval() time.Duration {
	return seconds(c.MinimumWait)
}

// Threshold returns BlockingThreshold as a duration.
func (c *Config) Threshold() time.Duration {
	return seconds(c.BlockingThreshold)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.PollingRate <= 0 {
		errs = append(errs, fmt.Errorf("polling-rate must be positive, got %v", c.PollingRate))
	}
	if c.MinimumWait < 0 {
		errs = append(errs, fmt.Errorf("minimum-wait must not be negative, got %v", c.MinimumWait))
	}
	if c.BlockingThreshold < 0 {
		errs = append(errs, fmt.Errorf("blocking-threshold must not be negative, got %v", c.BlockingThreshold))
	}
	if c.Width < 0 {
		errs = append(errs, fmt.Errorf("width must not be negative, got %d", c.Width))
	}
	switch c.LogEncoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log-encoding must be console or json, got %q", c.LogEncoding))
	}
	return errors.Join(errs...)
}

// Value returns the setting stored under a schema key name.
func (c *Config) Value(name string) (any, bool) {
	switch name {
	case "polling-rate":
		return c.PollingRate, true
	case "minimum-wait":
		return c.MinimumWait, true
	case "blocking-threshold":
		return c.BlockingThreshold, true
	case "width":
		return c.Width, true
	case "summary":
		return c.Summary, true
	case "diagnostics-on-interrupt":
		return c.DiagnosticsOnInterrupt, true
	case "log-level":
		return c.LogLevel, true
	case "log-encoding":
		return c.LogEncoding, true
	}
	return nil, false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load builds the configuration from, lowest to highest precedence:
// 1. Built-in defaults
// 2. User config (path, usually ~/.dbt/dbtmon.yml)
// 3. Project config (.dbtmon.yml in the working directory or a parent)
// 4. DBTMON_* environment variables
// 5. Flags in fs that were set on the command line
//
// A missing user config is not an error. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		projectViper.SetConfigType("yaml")
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config: %w", err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for _, key := range Keys {
			if f := fs.Lookup(key.Name); f != nil {
				if err := v.BindPFlag(key.Name, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", key.Name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// UserConfigPath returns the path of the user config file.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".dbt", "dbtmon.yml")
	}
	return filepath.Join(home, ".dbt", "dbtmon.yml")
}

// ProjectConfigPath returns the project config file if one exists.
func ProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values from the key schema.
func setDefaults(v *viper.Viper) {
	for _, key := range Keys {
		v.SetDefault(key.Name, key.Default)
	}
}

// findProjectConfig searches for .dbtmon.yml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		PollingRate:            0.2,
		MinimumWait:            0.025,
		BlockingThreshold:      60,
		Width:                  0,
		Summary:                false,
		DiagnosticsOnInterrupt: false,
		LogLevel:               "warn",
		LogEncoding:            "console",
	}
}
