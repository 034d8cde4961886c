// Package util provides utility functions and types for avaroute.
//
// This package contains shared utilities used across the route
// compiler including error types and validation functions.
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - ConfigError, ValidationError: route table configuration errors
//   - PatternError: route patterns that cannot become segment matchers
//   - RouteNotFoundError, MethodNotAllowedError: lookup failures
//   - Common sentinel errors: ErrNotFound, ErrMethodNotAllowed, etc.
//
// # Validation
//
// Input validation helpers used by the configuration validator:
//
//	err := util.ValidateRedisURL("redis://localhost:6379/0")
//	err := util.ValidateParameterName("id")
package util
