package profiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://fairspec.org/profiles"

// writeTree creates files below root from a map of slash-separated paths to contents.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// fairspecTemplates mirrors the shape of the real profiles/ directory.
func fairspecTemplates() map[string]string {
	return map[string]string{
		"dataset.json": `{
  "$id": "dataset",
  "allOf": [{"$ref": "{fairspec-file-ref}"}, {"$ref": "{fairspec-table-ref}"}]
}
`,
		"table.json": `{
  "dialect": {"$ref": "{file-dialect-ref}"},
  "schema": {"$ref": "{table-schema-ref}"}
}
`,
		"file.json":             `{"schema": {"$ref": "{data-schema-ref}"}}` + "\n",
		"file-dialect.json":     `{"type": "object"}` + "\n",
		"datacite/dataset.json": `{"allOf": [{"$ref": "{dataset-ref}"}]}` + "\n",
		"grei/dataset.json":     `{"allOf": [{"$ref": "{dataset-ref}"}, {"$ref": "{dataset-ref}"}]}` + "\n",
	}
}

// newTestPublisher builds a publisher over a fresh template tree.
func newTestPublisher(t *testing.T, files map[string]string, opts ...Option) (*Publisher, string, string) {
	t.Helper()
	dir := t.TempDir()
	templateDir := filepath.Join(dir, "profiles")
	outputRoot := filepath.Join(dir, "public", "profiles")
	writeTree(t, templateDir, files)

	pub, err := NewPublisher(Settings{
		TemplateDir: templateDir,
		OutputRoot:  outputRoot,
		BaseURL:     testBaseURL,
	}, opts...)
	require.NoError(t, err)
	return pub, templateDir, outputRoot
}

// snapshot returns the contents of every file below root keyed by relative path.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files, err := listFiles(root)
	require.NoError(t, err)
	out := make(map[string]string, len(files))
	for rel := range files {
		out[rel] = readFile(t, filepath.Join(root, filepath.FromSlash(rel)))
	}
	return out
}
