// Package inspector serves a read-only HTTP view of a compiled route tree.
//
// Endpoints:
//
//	GET /healthz            liveness
//	GET /readyz             readiness checks
//	GET /routes             registered routes in registration order
//	GET /tree               encoded tree and optimizer statistics (?format=yaml)
//	GET /match?method=&path= dispatch a path without serving it
//	GET /metrics            Prometheus metrics, when metrics are configured
package inspector
