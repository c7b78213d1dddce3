// Package runtime is the HTTP client for the remote quantum runtime. It
// authenticates over the ibm_quantum or ibm_cloud channel, lists and
// resolves backends, and turns calibration data into a noise profile for the
// local simulator.
package runtime
