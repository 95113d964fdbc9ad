// Package version holds the build version string.
package version

// Version is the current subsort release. Overridden at build time via
// -ldflags "-X github.com/subsort/subsort/pkg/version.Version=...".
var Version = "1.0.0"
