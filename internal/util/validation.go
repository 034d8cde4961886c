package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// parameterNameRegex validates route parameter names.
var parameterNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateRedisURL validates a redis connection URL.
func ValidateRedisURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return fmt.Errorf("URL scheme must be redis or rediss, got: %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

// ValidateParameterName validates a route parameter name.
func ValidateParameterName(name string) error {
	if name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}

	if !parameterNameRegex.MatchString(name) {
		return fmt.Errorf("invalid parameter name: %s", name)
	}

	return nil
}

// ValidateDuration validates a duration is not negative.
func ValidateDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration cannot be negative: %v", d)
	}
	return nil
}

// ValidateRegex validates a regex pattern.
func ValidateRegex(pattern string) error {
	if pattern == "" {
		return nil
	}

	_, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}

	return nil
}

// ValidateHTTPMethod validates an HTTP method.
func ValidateHTTPMethod(method string) error {
	validMethods := map[string]bool{
		"GET":     true,
		"POST":    true,
		"PUT":     true,
		"DELETE":  true,
		"PATCH":   true,
		"HEAD":    true,
		"OPTIONS": true,
		"TRACE":   true,
		"CONNECT": true,
		"*":       true, // Wildcard
	}

	method = strings.ToUpper(method)
	if !validMethods[method] {
		return fmt.Errorf("%w: unsupported HTTP method %s", ErrInvalidInput, method)
	}

	return nil
}

// ValidateSamplingRate validates a trace sampling rate (0-1).
func ValidateSamplingRate(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("sampling rate must be between 0 and 1, got: %f", value)
	}
	return nil
}

// ValidateNonEmpty validates that a string is not empty.
func ValidateNonEmpty(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}
