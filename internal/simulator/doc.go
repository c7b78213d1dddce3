// Package simulator provides the local backend used in degraded mode.
package simulator
