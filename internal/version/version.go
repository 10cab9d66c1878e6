package version

import "fmt"

// Build metadata, injected via -ldflags at release time. The defaults
// identify a local development build.
var (
	// Version is the semantic version of the binary.
	Version = "1.0.0"
	// Commit is the short git SHA the binary was built from.
	Commit = "none"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Short returns the bare semantic version.
func Short() string {
	return Version
}

// Full returns the version together with the commit and build timestamp.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime)
}
