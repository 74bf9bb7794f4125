// Package errors provides the error taxonomy for the task pool. It defines
// sentinel errors for every failure the pool reports, a structured
// PoolError that carries the operation and pool context, and classification
// helpers.
//
// # Error Kinds
//
// Every failure returned by the pool falls into one of three kinds:
//   - KindUsage: the caller broke the contract (nil handle, nil action,
//     non-positive worker count). Always detected synchronously.
//   - KindResource: the pool could not acquire something it needed (a
//     worker failed to start). State is unwound before returning.
//   - KindShutdown: the pool has begun shutting down and refuses new work.
//     The caller keeps ownership of the rejected task's argument.
//
// # Usage
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrPoolShutdown) { ... }
//
//	var poolErr *errors.PoolError
//	if errors.As(err, &poolErr) {
//	    fmt.Println(poolErr.Op, poolErr.Kind)
//	}
//
//	if errors.IsUsage(err) { ... }
//
// Errors are always returned, never panicked. The logging sink is told about
// them, but it is not the channel of propagation.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning is for errors the caller is expected to handle routinely.
	SeverityWarning Severity = iota
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that leave the pool unusable.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Kind classifies a pool failure.
type Kind int

const (
	// KindUsage marks a contract violation by the caller.
	KindUsage Kind = iota
	// KindResource marks a failure to acquire pool resources.
	KindResource
	// KindShutdown marks a submission refused because the pool is stopping.
	KindShutdown
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindResource:
		return "resource"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Usage sentinel errors
var (
	// ErrNilPool indicates an operation on a nil pool handle.
	ErrNilPool = New("pool handle is nil")
	// ErrNilAction indicates a task submitted without an action.
	ErrNilAction = New("task action is nil")
	// ErrInvalidWorkerCount indicates a worker count below one.
	ErrInvalidWorkerCount = New("worker count must be positive")
)

// Resource sentinel errors
var (
	// ErrWorkerStart indicates a worker could not be started.
	ErrWorkerStart = New("failed to start worker")
)

// Shutdown sentinel errors
var (
	// ErrPoolShutdown indicates the pool no longer accepts tasks.
	ErrPoolShutdown = New("pool is shutting down")
)

// kindOf maps each sentinel to its kind.
func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrPoolShutdown):
		return KindShutdown
	case errors.Is(err, ErrWorkerStart):
		return KindResource
	default:
		return KindUsage
	}
}

// -----------------------------------------------------------------------------
// PoolError
// -----------------------------------------------------------------------------

// PoolError describes a failed pool operation.
//
// Example:
//
//	err := errors.NewPoolError("submit", errors.ErrPoolShutdown).
//	    WithPoolID("3f2a...").WithTaskName("resize-42")
//	fmt.Println(err) // "pool submit failed [pool=3f2a..., task=resize-42]: pool is shutting down"
type PoolError struct {
	Op       string
	Kind     Kind
	PoolID   string
	TaskName string
	Worker   int // -1 when not tied to a worker
	cause    error
}

// NewPoolError creates a PoolError for op. The kind is derived from cause.
func NewPoolError(op string, cause error) *PoolError {
	return &PoolError{
		Op:     op,
		Kind:   kindOf(cause),
		Worker: -1,
		cause:  cause,
	}
}

// WithPoolID adds the pool ID to the error context.
func (e *PoolError) WithPoolID(id string) *PoolError {
	e.PoolID = id
	return e
}

// WithTaskName adds the task name to the error context.
func (e *PoolError) WithTaskName(name string) *PoolError {
	e.TaskName = name
	return e
}

// WithWorker adds the worker index to the error context.
func (e *PoolError) WithWorker(idx int) *PoolError {
	e.Worker = idx
	return e
}

// Error returns the formatted error message.
func (e *PoolError) Error() string {
	var parts []string
	if e.PoolID != "" {
		parts = append(parts, fmt.Sprintf("pool=%s", e.PoolID))
	}
	if e.TaskName != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskName))
	}
	if e.Worker >= 0 {
		parts = append(parts, fmt.Sprintf("worker=%d", e.Worker))
	}

	prefix := fmt.Sprintf("pool %s failed", e.Op)
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// Unwrap returns the underlying error.
func (e *PoolError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a *PoolError or matches the cause.
func (e *PoolError) Is(target error) bool {
	if _, ok := target.(*PoolError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *PoolError) Severity() Severity {
	switch e.Kind {
	case KindShutdown:
		return SeverityWarning
	case KindResource:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the kind of err and whether err carries pool context.
func KindOf(err error) (Kind, bool) {
	var poolErr *PoolError
	if errors.As(err, &poolErr) {
		return poolErr.Kind, true
	}
	if err == nil {
		return KindUsage, false
	}
	for _, s := range []error{ErrNilPool, ErrNilAction, ErrInvalidWorkerCount, ErrWorkerStart, ErrPoolShutdown} {
		if errors.Is(err, s) {
			return kindOf(err), true
		}
	}
	return KindUsage, false
}

// IsUsage reports whether err is a caller contract violation.
func IsUsage(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindUsage
}

// IsResource reports whether err is a resource acquisition failure.
func IsResource(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindResource
}

// IsShutdown reports whether err is a shutdown rejection.
func IsShutdown(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindShutdown
}

// GetSeverity returns the severity of err, or SeverityError for foreign errors.
func GetSeverity(err error) Severity {
	var poolErr *PoolError
	if errors.As(err, &poolErr) {
		return poolErr.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with additional context.
// Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
