// Package glimpse is a request-scoped diagnostics runtime. It attaches to an
// inbound HTTP request through a host adapter, decides per lifecycle event how
// much instrumentation the current policy permits, runs pluggable collectors
// across the request lifetime, and at the end of the request persists the
// collected data and optionally injects the client script into the response.
//
// The runtime hands the host an opaque Handle at BeginRequest and expects it
// back on every subsequent lifecycle call. A diagnostics failure never breaks
// the host request: collector, persistence and rendering errors are caught at
// the coordinator boundary and logged. The only errors surfaced to the host
// are integration defects (a stale handle, an uninitialized runtime) and a
// collector failure during begin-time setup.
package glimpse
