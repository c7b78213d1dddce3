// Package params collects the identifying parameters of a runtime session
// (token, instance, backend name) from every configured source.
//
// This package provides:
//   - Typed parameter values with a redacted rendering for secrets
//   - Immutable per-source parameter sets with a fixed priority rank
//   - Source readers for flags, key files, YAML config files, the process
//     environment and dotenv files
//   - Aggregation of all sources into one set per source
//
// Nothing in this package talks to the remote runtime.
package params
