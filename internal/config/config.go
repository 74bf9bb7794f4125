package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/taskpool/internal/logging"
)

// EnvPrefix is prepended to environment overrides, e.g. TASKPOOL_POOL_WORKERS.
const EnvPrefix = "TASKPOOL"

// Config represents the complete taskpool configuration
type Config struct {
	Pool    PoolConfig    `mapstructure:"pool" yaml:"pool"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Demo    DemoConfig    `mapstructure:"demo" yaml:"demo"`
}

// PoolConfig controls the worker pool
type PoolConfig struct {
	// Workers is the fixed number of worker goroutines (default: 4)
	Workers int `mapstructure:"workers" yaml:"workers"`
	// DeadlockDetection guards the pool with a go-deadlock mutex (default: false)
	DeadlockDetection bool `mapstructure:"deadlock_detection" yaml:"deadlock_detection"`
}

// LoggingConfig controls the JSON log file
type LoggingConfig struct {
	// Enabled writes logs to a file under Dir. When false, only warnings and
	// errors go to stderr.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum level: fatal, error, warn, info, debug or trace
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory. Empty means <config dir>/logs.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB rotates the file once it grows past this size (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
	// Components overrides the minimum level per component, e.g. {pool: debug}.
	// The value "off" disables a component.
	Components map[string]string `mapstructure:"components" yaml:"components,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// TracingConfig controls span export to stdout
type TracingConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	PrettyPrint bool `mapstructure:"pretty_print" yaml:"pretty_print"`
}

// DemoConfig shapes the workload submitted by `taskpool run`
type DemoConfig struct {
	// Tasks is the number of tasks to submit
	Tasks int `mapstructure:"tasks" yaml:"tasks"`
	// Producers is the number of goroutines submitting concurrently
	Producers int `mapstructure:"producers" yaml:"producers"`
	// MinTaskMs and MaxTaskMs bound the random time each task sleeps
	MinTaskMs int `mapstructure:"min_task_ms" yaml:"min_task_ms"`
	MaxTaskMs int `mapstructure:"max_task_ms" yaml:"max_task_ms"`
	// SubmitRate limits submissions per second across producers (0 = unlimited)
	SubmitRate float64 `mapstructure:"submit_rate" yaml:"submit_rate"`
	// StatusIntervalMs is how often worker status is printed
	StatusIntervalMs int `mapstructure:"status_interval_ms" yaml:"status_interval_ms"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	rotation := logging.DefaultRotationConfig()
	return &Config{
		Pool: PoolConfig{
			Workers:           4,
			DeadlockDetection: false,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			Compress:   rotation.Compress,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			PrettyPrint: false,
		},
		Demo: DemoConfig{
			Tasks:            12,
			Producers:        2,
			MinTaskMs:        50,
			MaxTaskMs:        500,
			SubmitRate:       0,
			StatusIntervalMs: 250,
		},
	}
}

// MinTaskDuration returns the shortest demo task sleep
func (c *DemoConfig) MinTaskDuration() time.Duration {
	return time.Duration(c.MinTaskMs) * time.Millisecond
}

// MaxTaskDuration returns the longest demo task sleep
func (c *DemoConfig) MaxTaskDuration() time.Duration {
	return time.Duration(c.MaxTaskMs) * time.Millisecond
}

// StatusInterval returns the status refresh interval (0 means disabled)
func (c *DemoConfig) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalMs) * time.Millisecond
}

// ResolveDir returns the log directory. An empty Dir resolves to
// <config dir>/logs and a leading ~ expands to the home directory.
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}

	path := c.Dir
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Pool defaults
	viper.SetDefault("pool.workers", defaults.Pool.Workers)
	viper.SetDefault("pool.deadlock_detection", defaults.Pool.DeadlockDetection)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.pretty_print", defaults.Tracing.PrettyPrint)

	// Demo defaults
	viper.SetDefault("demo.tasks", defaults.Demo.Tasks)
	viper.SetDefault("demo.producers", defaults.Demo.Producers)
	viper.SetDefault("demo.min_task_ms", defaults.Demo.MinTaskMs)
	viper.SetDefault("demo.max_task_ms", defaults.Demo.MaxTaskMs)
	viper.SetDefault("demo.submit_rate", defaults.Demo.SubmitRate)
	viper.SetDefault("demo.status_interval_ms", defaults.Demo.StatusIntervalMs)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskpool")
	}
	// Fall back to ~/.config/taskpool
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskpool"
	}
	return filepath.Join(home, ".config", "taskpool")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
