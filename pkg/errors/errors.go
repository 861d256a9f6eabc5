package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError represents a manifest parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures manifest validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfigurationKind classifies fatal build configuration problems.
type ConfigurationKind string

const (
	// KindDuplicateTask is reported when a task identity is declared twice.
	KindDuplicateTask ConfigurationKind = "duplicate_task"
	// KindUnknownTarget is reported when a requested target matches no task.
	KindUnknownTarget ConfigurationKind = "unknown_target"
	// KindCycle is reported when ordering constraints form a cycle.
	KindCycle ConfigurationKind = "cycle"
	// KindDuplicatePlugin is reported when two plugins share a name.
	KindDuplicatePlugin ConfigurationKind = "duplicate_plugin"
	// KindProjectCycle is reported when projects depend on each other circularly.
	KindProjectCycle ConfigurationKind = "project_cycle"
	// KindInvalidTask is reported when a task declaration is incomplete.
	KindInvalidTask ConfigurationKind = "invalid_task"
)

// ConfigurationError is fatal and is always reported before any task runs.
type ConfigurationError struct {
	Kind    ConfigurationKind
	Subject string
	Message string
	Cycle   []string
}

// NewConfigurationError constructs a ConfigurationError.
func NewConfigurationError(kind ConfigurationKind, subject, message string) error {
	return &ConfigurationError{Kind: kind, Subject: subject, Message: message}
}

// NewCycleError reports the nodes forming a cycle. The first node is repeated at the end when rendered.
func NewCycleError(kind ConfigurationKind, cycle []string) error {
	return &ConfigurationError{
		Kind:    kind,
		Message: "dependency cycle detected",
		Cycle:   append([]string(nil), cycle...),
	}
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("configuration error")
	if e.Subject != "" {
		fmt.Fprintf(&b, " [%s]", e.Subject)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Cycle) > 0 {
		sequence := append(append([]string{}, e.Cycle...), e.Cycle[0])
		b.WriteString(": ")
		b.WriteString(strings.Join(sequence, " -> "))
	}
	return b.String()
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// ExecutionError represents a runtime failure while executing a task.
type ExecutionError struct {
	TaskID string
	Err    error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(taskID string, err error) error {
	return &ExecutionError{TaskID: taskID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.TaskID != "" {
		return fmt.Sprintf("execution error on task %s: %v", e.TaskID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError indicates issues within plugin registration or execution.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// NewPluginError constructs a PluginError for the given plugin name.
func NewPluginError(plugin string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PluginError{Plugin: plugin, Message: message, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin != "" {
		return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("plugin error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
