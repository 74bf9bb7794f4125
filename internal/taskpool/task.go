package taskpool

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Display strings used in worker status slots.
const (
	// IdleTaskName is reported for a worker that is not running a task.
	IdleTaskName = "[idle]"
	// DefaultTaskName is used when a task is submitted without a name.
	DefaultTaskName = "unnamed_task"
	// MaxTaskNameLen bounds a status slot, terminator included, so stored
	// names hold at most MaxTaskNameLen-1 bytes.
	MaxTaskNameLen = 64
)

// Action is the work a Task performs. It receives the task's argument and
// becomes responsible for disposing of it.
type Action func(arg any)

// Task is one unit of submitted work. It is copied into the queue on
// submission; the caller may drop its own copy immediately afterwards.
type Task struct {
	ID     string
	Action Action
	Arg    any
	Name   string
}

// NewTask builds a Task with a fresh ID and a normalized name.
func NewTask(action Action, arg any, name string) Task {
	return Task{
		ID:     uuid.NewString(),
		Action: action,
		Arg:    arg,
		Name:   NormalizeName(name),
	}
}

// NormalizeName applies the status slot rules to a task name: anything from
// the first NUL byte on is dropped, an empty name becomes DefaultTaskName,
// and long names are cut to MaxTaskNameLen-1 bytes without splitting a rune.
func NormalizeName(name string) string {
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return DefaultTaskName
	}

	limit := MaxTaskNameLen - 1
	if len(name) <= limit {
		return name
	}
	for limit > 0 && !utf8.RuneStart(name[limit]) {
		limit--
	}
	return name[:limit]
}
