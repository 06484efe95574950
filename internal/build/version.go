// Package build carries the version stamped into the laneqc binary.
// It has no internal dependencies so any package can import it.
package build

var (
	// Version information - set via ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// IsDevBuild returns true if running a development build (not a release).
func IsDevBuild() bool {
	return Version == "dev"
}

// HasCommit reports whether a commit was stamped at build time.
func HasCommit() bool {
	return Commit != "" && Commit != "unknown"
}
