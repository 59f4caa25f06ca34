// Package observability provides structured logging and Prometheus metrics
// for the guard.
//
// Logging is zap-based with request id propagation; metrics implement
// keycloak.Metrics so the guard, verifier and key resolver report into a
// single registry.
package observability
