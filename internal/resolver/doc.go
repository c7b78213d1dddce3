// Package resolver implements the ordered fallback procedure that turns
// per-source parameter sets into a working connection.
//
// Candidates are built from every permitted assignment of sources to the
// required parameters, tried one at a time in rank order, and the first
// success wins. Attempts are never raced. When every candidate fails the
// caller gets a single *ExhaustedError listing each attempt.
package resolver
