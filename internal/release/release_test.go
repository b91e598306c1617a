package release

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	writeFile(t, path, `{"name": "fairspec", "version": "1.2.0", "type": "module"}`)

	v, err := ReadVersion(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v)
}

func TestReadVersion_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadVersion(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRelease))

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"version": `)
	_, err = ReadVersion(bad)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	writeFile(t, empty, `{"name": "fairspec"}`)
	_, err = ReadVersion(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no version")
}

func TestHeadCommit(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, HeadCommit(dir))

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	assert.Empty(t, HeadCommit(dir), "repository without commits")

	writeFile(t, filepath.Join(dir, "profiles", "dataset.json"), "{}")
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("profiles/dataset.json")
	require.NoError(t, err)
	hash, err := wt.Commit("add profiles", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.org", When: time.Now()},
	})
	require.NoError(t, err)

	assert.Equal(t, hash.String(), HeadCommit(filepath.Join(dir, "profiles")))
}
