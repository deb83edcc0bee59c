// Package version holds build information set via -ldflags.
package version

// Set at build time:
//
//	-ldflags "-X github.com/corebridge/corebridge/internal/version.Version=v0.3.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the one-line build description.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
