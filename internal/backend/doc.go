// Package backend selects the compute backend for a run: a live backend
// reached through the runtime in connected mode, or a local simulator,
// optionally seeded with a real backend's noise profile, in local mode.
package backend
