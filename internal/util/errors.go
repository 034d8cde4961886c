// Package util provides utility functions and types for avaroute.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError, PatternError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common sentinel errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrInvalidPattern   = errors.New("invalid route pattern")
	ErrDuplicateRoute   = errors.New("duplicate route")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// ValidationError represents a validation failure. Fields holds the
// combined message per field and Errors the individual field errors in the
// order they were found.
type ValidationError struct {
	Fields  map[string]string
	Errors  []*ConfigError
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("validation error: %s (%s)", e.Message, strings.Join(parts, "; "))
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// Unwrap returns the field errors so that errors.As finds a *ConfigError.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	e.Add(NewConfigError(field, message))
}

// Add records a field error. Messages for a field seen before are joined
// to the earlier ones.
func (e *ValidationError) Add(fe *ConfigError) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	message := fe.Message
	if existing, ok := e.Fields[fe.Field]; ok {
		message = existing + ", " + message
	}
	e.Fields[fe.Field] = message
	e.Errors = append(e.Errors, fe)
}

// HasErrors reports whether any field error was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// PatternError represents a route pattern that cannot be compiled into
// segment matchers.
type PatternError struct {
	Pattern string
	Segment string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PatternError) Error() string {
	msg := fmt.Sprintf("invalid route pattern %q", e.Pattern)
	if e.Segment != "" {
		msg += fmt.Sprintf(" at segment %q", e.Segment)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *PatternError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *PatternError) Is(target error) bool {
	if target == ErrInvalidPattern || target == ErrInvalidInput {
		return true
	}
	_, ok := target.(*PatternError)
	return ok || errors.Is(e.Cause, target)
}

// NewPatternError creates a new PatternError.
func NewPatternError(pattern, segment, message string, cause error) *PatternError {
	return &PatternError{Pattern: pattern, Segment: segment, Message: message, Cause: cause}
}

// RouteNotFoundError represents a route not found error.
type RouteNotFoundError struct {
	Path   string
	Method string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path, Method: method}
}

// MethodNotAllowedError is returned when a path matches at least one route
// but none of the matching routes accepts the request method.
type MethodNotAllowedError struct {
	Path    string
	Method  string
	Allowed []string
}

// Error implements the error interface.
func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed for %s (allowed: %s)",
		e.Method, e.Path, strings.Join(e.Allowed, ", "))
}

// Is checks if the error matches the target.
func (e *MethodNotAllowedError) Is(target error) bool {
	if target == ErrMethodNotAllowed {
		return true
	}
	_, ok := target.(*MethodNotAllowedError)
	return ok
}

// NewMethodNotAllowedError creates a new MethodNotAllowedError.
func NewMethodNotAllowedError(method, path string, allowed []string) *MethodNotAllowedError {
	return &MethodNotAllowedError{Path: path, Method: method, Allowed: allowed}
}

// DuplicateRouteError is returned when a route name is registered twice.
type DuplicateRouteError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route name: %s", e.Name)
}

// Is checks if the error matches the target.
func (e *DuplicateRouteError) Is(target error) bool {
	if target == ErrDuplicateRoute {
		return true
	}
	_, ok := target.(*DuplicateRouteError)
	return ok
}

// NewDuplicateRouteError creates a new DuplicateRouteError.
func NewDuplicateRouteError(name string) *DuplicateRouteError {
	return &DuplicateRouteError{Name: name}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsClientError returns true if the error is a client error (4xx).
func IsClientError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMethodNotAllowed) ||
		errors.Is(err, ErrInvalidInput)
}
