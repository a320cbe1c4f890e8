package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeDatabase     ErrorType = "database"
	ErrTypeValidation   ErrorType = "validation"
	ErrTypeConfig       ErrorType = "config"
	ErrTypeNetwork      ErrorType = "network"
	ErrTypeConnectivity ErrorType = "connectivity"
	ErrTypeCompletion   ErrorType = "completion"
	ErrTypeExecution    ErrorType = "execution"
	ErrTypeExhausted    ErrorType = "exhausted"
	ErrTypeIndexing     ErrorType = "indexing"
	ErrTypeEmbedding    ErrorType = "embedding"
	ErrTypeFileSystem   ErrorType = "filesystem"
	ErrTypeInternal     ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if any error in the chain is a structured error of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var structErr *Error
		if !errors.As(err, &structErr) {
			return false
		}

		if structErr.Type == errType {
			return true
		}

		err = structErr.Cause
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// NewConfigError creates a configuration error with suggestions
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}

	return err.
		WithSuggestion("Check your configuration file syntax").
		WithSuggestion("Run with --help to see valid configuration options")
}

// NewConnectivityError reports an unreachable completion endpoint
func NewConnectivityError(endpoint string, cause error) *Error {
	return Wrapf(cause, ErrTypeConnectivity, "failed to reach completion service at %s", endpoint).
		WithSuggestion("Check that the completion service is running and reachable").
		WithSuggestion("Verify llm.base_url in your configuration")
}

// Suggestions collects the suggestions of every structured error in the chain
func Suggestions(err error) []string {
	var out []string

	for err != nil {
		var structErr *Error
		if !errors.As(err, &structErr) {
			break
		}

		out = append(out, structErr.Suggestions...)
		err = structErr.Cause
	}

	return out
}
