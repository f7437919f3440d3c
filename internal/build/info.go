// Package build exposes build-time metadata injected via ldflags.
package build

// Version, Commit, and Branch are set at build time by:
//
//	-ldflags "-X github.com/tomhasit/tomhasit-web/internal/build.Version=... ..."
var (
	Version = "dev"
	Commit  = "unknown"
	Branch  = "unknown"
)

// String formats the build metadata for the version command and startup log.
func String() string {
	return Version + " (" + Branch + "@" + Commit + ")"
}
