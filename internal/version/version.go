// Package version holds build information for repograph.
package version

// Overridden at build time:
// go build -ldflags "-X repograph/internal/version.Version=1.0.0 -X repograph/internal/version.Commit=abc123"
var (
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "repograph version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}

// UserAgent is sent on every upstream request.
func UserAgent() string {
	return "repograph/" + Version
}
