// Package version carries the loredex build identity, stamped by the
// release pipeline via -ldflags on cmd/loredex.
package version

// Overridden at build time; the defaults identify a local dev build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
