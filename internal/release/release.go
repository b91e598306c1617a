// Package release reads the release metadata a publish run is stamped with.
package release

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
)

// packageMetadata is the subset of package.json the publisher needs.
type packageMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadVersion returns the version field of the JSON release metadata file at path.
func ReadVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ferrors.ReleaseError("release metadata file not found").
				WithContext("path", path).
				Build()
		}
		return "", ferrors.WrapError(err, ferrors.CategoryRelease, "failed to read release metadata").
			Fatal().
			WithContext("path", path).
			Build()
	}

	var meta packageMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryRelease, "failed to parse release metadata").
			Fatal().
			WithContext("path", path).
			Build()
	}

	version := strings.TrimSpace(meta.Version)
	if version == "" {
		return "", ferrors.ReleaseError("release metadata has no version").
			WithContext("path", path).
			Build()
	}
	return version, nil
}

// HeadCommit returns the HEAD commit hash of the git repository containing
// dir, searching parent directories. It returns "" when dir is not inside a
// repository or HEAD does not resolve (e.g. a repository without commits).
func HeadCommit(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}
