// Package errors provides a lightweight structured error type (BuildError)
// for category-based classification across the orchestration engine and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a build error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategorySchema     ErrorCategory = "schema"
	CategoryValidation ErrorCategory = "validation"
	CategoryExplosion  ErrorCategory = "explosion"

	// Build preparation errors
	CategoryHeader  ErrorCategory = "header"
	CategoryProject ErrorCategory = "project"

	// Child process errors
	CategoryLaunch ErrorCategory = "launch"
	CategoryBuild  ErrorCategory = "build"

	// Runtime and infrastructure errors
	CategorySession  ErrorCategory = "session"
	CategoryCanceled ErrorCategory = "canceled"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the whole session
	SeverityError   ErrorSeverity = "error"   // Error, but the session continues
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// BuildError is a structured error with category, severity, and context
type BuildError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Context   ContextFields `json:"context,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
}

// ContextFields carries structured context for BuildError
type ContextFields map[string]any

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error must abort the remaining session.
func (e *BuildError) Fatal() bool {
	return e.Severity == SeverityFatal
}

// WithContext adds context information to the error
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithRetryable marks the error as transient: the same operation may succeed
// if attempted again.
func (e *BuildError) WithRetryable() *BuildError {
	e.Retryable = true
	return e
}

// IsRetryable reports whether the error is marked transient.
func IsRetryable(err error) bool {
	if be, ok := err.(*BuildError); ok {
		return be.Retryable
	}
	return false
}

// New creates a new BuildError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if be, ok := err.(*BuildError); ok {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a BuildError
func GetCategory(err error) ErrorCategory {
	if be, ok := err.(*BuildError); ok {
		return be.Category
	}
	return CategoryInternal
}

// SchemaError creates a schema validation error (rejects the whole request).
func SchemaError(message string) *BuildError {
	return &BuildError{
		Category: CategorySchema,
		Severity: SeverityFatal,
		Message:  message,
	}
}

// ValidationError creates a range/selection validation error for one setting.
func ValidationError(settingID, message string) *BuildError {
	e := &BuildError{
		Category: CategoryValidation,
		Severity: SeverityFatal,
		Message:  message,
	}
	return e.WithContext("setting", settingID)
}

// LaunchError creates a fatal process-launch error.
func LaunchError(err error, message string) *BuildError {
	return &BuildError{
		Category: CategoryLaunch,
		Severity: SeverityFatal,
		Message:  message,
		Cause:    err,
	}
}

// HeaderError creates a fatal header format error.
func HeaderError(message string) *BuildError {
	return &BuildError{
		Category: CategoryHeader,
		Severity: SeverityFatal,
		Message:  message,
	}
}
