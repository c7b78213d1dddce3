// Package audit records resolution attempts to a write-only sink.
package audit
