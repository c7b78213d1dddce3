// Package observability provides structured logging and metrics for
// qruntime.
//
// This package implements:
//   - zap logger construction from level and format settings
//   - A context-aware Logger that adds run and session IDs
//   - A Prometheus collector fed by resolver and backend selector events
package observability
