package profiles

import (
	"fmt"
	"strings"
)

// DefaultLatestTag names the copy that always tracks the newest release.
const DefaultLatestTag = "latest"

// ValidateVersion checks that version can safely name a published copy.
// The version selects a directory that is recursively deleted, so it must be
// a single path segment distinct from the latest tag.
func ValidateVersion(version, latestTag string) error {
	switch {
	case strings.TrimSpace(version) == "":
		return fmt.Errorf("version is empty")
	case version == "." || version == "..":
		return fmt.Errorf("version %q is not a directory name", version)
	case strings.ContainsAny(version, `/\`):
		return fmt.Errorf("version %q must not contain path separators", version)
	case version == latestTag:
		return fmt.Errorf("version %q collides with the latest tag", version)
	}
	return nil
}
