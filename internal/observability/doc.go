// Package observability owns metrics and the admin HTTP surface.
//
// Ownership boundary:
// - prometheus collectors for registration, actuator, radio, and protocol
// - gin admin router (/health, /status, /metrics) with request logging
//
// Collectors register lazily on first use.
package observability
