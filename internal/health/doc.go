// Package health reports liveness and readiness of the route compiler.
//
// A Checker runs named checks on demand. Critical checks that fail make the
// service unhealthy; non-critical failures only degrade it.
package health
