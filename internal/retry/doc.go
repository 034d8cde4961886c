// Package retry runs an operation with capped exponential backoff and
// jitter between attempts.
package retry
