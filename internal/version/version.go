// Package version exposes the gateway build version.
package version

// Version is the semantic version reported by health responses.
// Overridable at build time via -ldflags "-X .../internal/version.Version=...".
var Version = "1.0.0"
