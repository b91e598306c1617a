package version

import "fmt"

// Version is the profilepub release, set at build time:
// go build -ldflags "-X github.com/fairspec/profilepub/internal/version.Version=v1.0.0".
var Version = "unknown"

// Build metadata, also injected through ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `profilepub --version`.
func String() string {
	return fmt.Sprintf("profilepub %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
