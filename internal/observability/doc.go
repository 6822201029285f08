// Package observability provides structured logging and Prometheus metrics
// for the dashboard API.
//
// This package implements:
//   - zap logger construction from configuration
//   - decision counters for entitlements, privileges, lifecycle states and actions
//   - HTTP request instrumentation
package observability
