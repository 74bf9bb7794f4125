package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/Iron-Ham/taskpool/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pool.workers")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Upper bounds that catch typos rather than express real limits.
const (
	maxWorkers   = 4096
	maxLogSizeMB = 1000 // 1GB
)

// ComponentOff disables a component in logging.components.
const ComponentOff = "off"

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return logging.ValidLevels()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePool()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateMetrics()...)
	errors = append(errors, c.validateDemo()...)

	return errors
}

// validatePool validates the PoolConfig
func (c *Config) validatePool() []ValidationError {
	var errors []ValidationError

	if c.Pool.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.workers",
			Value:   c.Pool.Workers,
			Message: "must be at least 1",
		})
	}
	if c.Pool.Workers > maxWorkers {
		errors = append(errors, ValidationError{
			Field:   "pool.workers",
			Value:   c.Pool.Workers,
			Message: fmt.Sprintf("exceeds maximum of %d", maxWorkers),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	for _, name := range sortedKeys(c.Logging.Components) {
		level := c.Logging.Components[name]
		if strings.EqualFold(level, ComponentOff) {
			continue
		}
		if _, ok := logging.ParseLevel(level); !ok {
			errors = append(errors, ValidationError{
				Field:   "logging.components." + name,
				Value:   level,
				Message: fmt.Sprintf("must be %q or one of: %s", ComponentOff, strings.Join(ValidLogLevels(), ", ")),
			})
		}
	}

	return errors
}

// validateMetrics validates the MetricsConfig
func (c *Config) validateMetrics() []ValidationError {
	var errors []ValidationError

	if !c.Metrics.Enabled {
		return errors
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "metrics.addr",
			Value:   c.Metrics.Addr,
			Message: "must be a host:port address",
		})
	}

	return errors
}

// validateDemo validates the DemoConfig
func (c *Config) validateDemo() []ValidationError {
	var errors []ValidationError

	if c.Demo.Tasks < 0 {
		errors = append(errors, ValidationError{
			Field:   "demo.tasks",
			Value:   c.Demo.Tasks,
			Message: "must be non-negative",
		})
	}
	if c.Demo.Producers < 1 {
		errors = append(errors, ValidationError{
			Field:   "demo.producers",
			Value:   c.Demo.Producers,
			Message: "must be at least 1",
		})
	}
	if c.Demo.MinTaskMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "demo.min_task_ms",
			Value:   c.Demo.MinTaskMs,
			Message: "must be non-negative",
		})
	}
	if c.Demo.MaxTaskMs < c.Demo.MinTaskMs {
		errors = append(errors, ValidationError{
			Field:   "demo.max_task_ms",
			Value:   c.Demo.MaxTaskMs,
			Message: fmt.Sprintf("must be at least demo.min_task_ms (%d)", c.Demo.MinTaskMs),
		})
	}
	if c.Demo.SubmitRate < 0 {
		errors = append(errors, ValidationError{
			Field:   "demo.submit_rate",
			Value:   c.Demo.SubmitRate,
			Message: "must be non-negative",
		})
	}
	if c.Demo.StatusIntervalMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "demo.status_interval_ms",
			Value:   c.Demo.StatusIntervalMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
