// Package version holds the CLI version string. Release builds set it via:
// go build -ldflags "-X ollacommit/cli/internal/version.Version=v1.0.0"
package version

// Version is the ollacommit version. Set at build time for releases.
var Version = "dev"

// Commit is the short git commit hash for dev builds. Set via ldflags.
var Commit = ""

// String returns the version for --version output.
// Dev builds with Commit set render as "dev (abc1234)".
func String() string {
	if Version != "dev" || Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}

// UserAgent is sent with every request to the model server.
func UserAgent() string {
	return "ollacommit/" + Version
}
