// Package version reports the module's own version string, embedded into
// the run log of both cmd/profiler and cmd/litterer so an artifact or
// log line can always be traced back to the binary that produced it.
package version

// Tag is the module's release tag. It is a plain constant rather than a
// linker-injected value (see the teacher's -ldflags-based scheme) since
// this module ships as a preloadable shared object, not a versioned
// service binary with its own release pipeline.
const Tag = "v0.1.0"
