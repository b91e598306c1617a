package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairspec/profilepub/internal/config"
	"github.com/fairspec/profilepub/internal/eventstore"
	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/profiles"
)

type project struct {
	dir    string
	config string
	out    string
}

// newProject lays out a minimal profiles project with absolute paths in
// its configuration.
func newProject(t *testing.T, extraConfig string) project {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"package.json":        `{"name": "fairspec", "version": "1.2.0"}`,
		"profiles/file.json":  `{"title": "File"}`,
		"profiles/table.json": `{"$ref": "{fairspec-file-ref}"}`,
		"profiles/dataset.json": `{
  "file": "{fairspec-file-ref}",
  "table": "{fairspec-table-ref}"
}`,
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}

	out := filepath.Join(dir, "public", "profiles")
	cfg := fmt.Sprintf(`version: "1"
profiles:
  template_dir: %s
  output_root: %s
release:
  metadata_file: %s
rules:
  - placeholder: fairspec-file-ref
    path: file.json
    files: ["*.json"]
  - placeholder: fairspec-table-ref
    path: table.json
    files: [dataset.json]
history:
  enabled: true
  path: %s
%s`, filepath.Join(dir, "profiles"), out, filepath.Join(dir, "package.json"),
		filepath.Join(dir, ".profilepub", "history.db"), extraConfig)

	cfgPath := filepath.Join(dir, "profilepub.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return project{dir: dir, config: cfgPath, out: out}
}

func (p project) cli() *CLI { return &CLI{Config: p.config} }

func TestPublishCmd(t *testing.T) {
	p := newProject(t, "")
	var buf bytes.Buffer

	err := (&PublishCmd{NoNotify: true}).Run(&Global{Out: &buf}, p.cli())
	require.NoError(t, err)

	dataset, err := os.ReadFile(filepath.Join(p.out, "1.2.0", "dataset.json"))
	require.NoError(t, err)
	assert.Contains(t, string(dataset), "https://fairspec.org/profiles/1.2.0/file.json")
	assert.Contains(t, string(dataset), "https://fairspec.org/profiles/1.2.0/table.json")

	latest, err := os.ReadFile(filepath.Join(p.out, "latest", "table.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"$ref": "https://fairspec.org/profiles/latest/file.json"}`, string(latest))

	output := buf.String()
	assert.Contains(t, output, "Publishing profiles 1.2.0 (1.2.0, latest)")
	assert.Contains(t, output, "Copying profiles to latest")
	assert.Contains(t, output, "Updating references in 1.2.0")
	assert.Contains(t, output, "Published profiles 1.2.0")

	// history was recorded
	buf.Reset()
	require.NoError(t, (&HistoryCmd{}).Run(&Global{Out: &buf}, p.cli()))
	assert.Contains(t, buf.String(), "completed")
	assert.Contains(t, buf.String(), "1.2.0,latest")
}

func TestPublishCmd_ExplicitVersionAndNoHistory(t *testing.T) {
	p := newProject(t, "")
	var buf bytes.Buffer

	err := (&PublishCmd{ReleaseVersion: "2.0.0-rc.1", NoHistory: true, NoNotify: true}).Run(&Global{Out: &buf}, p.cli())
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(p.out, "2.0.0-rc.1"))
	assert.NoFileExists(t, filepath.Join(p.dir, ".profilepub", "history.db"))
}

func TestPublishCmd_RejectsLatestAsVersion(t *testing.T) {
	p := newProject(t, "")

	err := (&PublishCmd{ReleaseVersion: "latest", NoNotify: true}).Run(&Global{Out: &bytes.Buffer{}}, p.cli())
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryValidation, ferrors.GetCategory(err))
	assert.NoDirExists(t, p.out)
}

func TestVerifyCmd(t *testing.T) {
	p := newProject(t, "")
	var buf bytes.Buffer

	err := (&VerifyCmd{}).Run(&Global{Out: &buf}, p.cli())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "1.2.0: published copy is missing")

	require.NoError(t, (&PublishCmd{NoHistory: true, NoNotify: true}).Run(&Global{Out: &bytes.Buffer{}}, p.cli()))

	buf.Reset()
	require.NoError(t, (&VerifyCmd{}).Run(&Global{Out: &buf}, p.cli()))
	assert.Contains(t, buf.String(), "verified")

	// a placeholder that no rule resolves is reported
	require.NoError(t, os.WriteFile(filepath.Join(p.out, "latest", "extra.json"), []byte(`{"x": "{unknown-ref}"}`), 0o600))
	buf.Reset()
	err = (&VerifyCmd{}).Run(&Global{Out: &buf}, p.cli())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "latest/extra.json: not present in the template tree")
	assert.Contains(t, buf.String(), "latest/extra.json:1: unresolved placeholder {unknown-ref}")
}

func TestRulesCmd(t *testing.T) {
	p := newProject(t, "")
	var buf bytes.Buffer

	require.NoError(t, (&RulesCmd{Tag: "1.0.0"}).Run(&Global{Out: &buf}, p.cli()))
	assert.Contains(t, buf.String(), "{fairspec-file-ref}")
	assert.Contains(t, buf.String(), "https://fairspec.org/profiles/1.0.0/table.json")
	assert.Contains(t, buf.String(), "[dataset.json]")
}

func TestHistoryCmd_Empty(t *testing.T) {
	p := newProject(t, "")
	var buf bytes.Buffer

	require.NoError(t, (&HistoryCmd{}).Run(&Global{Out: &buf}, p.cli()))
	assert.Contains(t, buf.String(), "No publish runs recorded")
}

func TestHistoryCmd_RunDetail(t *testing.T) {
	p := newProject(t, "")
	require.NoError(t, (&PublishCmd{NoNotify: true}).Run(&Global{Out: &bytes.Buffer{}}, p.cli()))

	store, err := eventstore.NewSQLiteStore(filepath.Join(p.dir, ".profilepub", "history.db"))
	require.NoError(t, err)
	projection := eventstore.NewRunHistoryProjection(store, 10)
	require.NoError(t, projection.Rebuild(t.Context()))
	runs := projection.History()
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)

	var buf bytes.Buffer
	require.NoError(t, (&HistoryCmd{RunID: runs[0].RunID}).Run(&Global{Out: &buf}, p.cli()))
	out := buf.String()
	assert.Contains(t, out, "Run:      "+runs[0].RunID)
	assert.Contains(t, out, "Status:   completed")
	assert.Contains(t, out, "Tags:     1.2.0, latest")
	assert.Contains(t, out, "{fairspec-file-ref}: 4")
	assert.Contains(t, out, "{fairspec-table-ref}: 2")

	err = (&HistoryCmd{RunID: "missing"}).Run(&Global{Out: &bytes.Buffer{}}, p.cli())
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryNotFound, ferrors.GetCategory(err))
}

func TestCheckLinksCmd(t *testing.T) {
	p := newProject(t, "")
	require.NoError(t, (&PublishCmd{NoHistory: true, NoNotify: true}).Run(&Global{Out: &bytes.Buffer{}}, p.cli()))

	content := filepath.Join(p.dir, "content")
	require.NoError(t, os.MkdirAll(content, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(content, "index.md"),
		[]byte("[ok](https://fairspec.org/profiles/latest/dataset.json)\n"), 0o600))

	var buf bytes.Buffer
	require.NoError(t, (&CheckLinksCmd{Content: content}).Run(&Global{Out: &buf}, p.cli()))
	assert.Contains(t, buf.String(), "All profile links resolve")

	require.NoError(t, os.WriteFile(filepath.Join(content, "broken.md"),
		[]byte("[gone](https://fairspec.org/profiles/0.9.0/dataset.json)\n"), 0o600))
	buf.Reset()
	err := (&CheckLinksCmd{Content: content}).Run(&Global{Out: &buf}, p.cli())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "broken.md: https://fairspec.org/profiles/0.9.0/dataset.json")
}

func TestCheckLinksCmd_RequiresContentDir(t *testing.T) {
	p := newProject(t, "")
	err := (&CheckLinksCmd{}).Run(&Global{Out: &bytes.Buffer{}}, p.cli())
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryValidation, ferrors.GetCategory(err))
}

func TestInitCmd(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "profilepub.yaml")
	var buf bytes.Buffer

	require.NoError(t, (&InitCmd{}).Run(&Global{Out: &buf}, &CLI{Config: cfgPath}))
	assert.Contains(t, buf.String(), "initialized successfully")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "https://fairspec.org/profiles", cfg.ProfilesBaseURL())

	require.Error(t, (&InitCmd{}).Run(&Global{Out: &bytes.Buffer{}}, &CLI{Config: cfgPath}))
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{Out: &bytes.Buffer{}}, &CLI{Config: cfgPath}))
}

func TestSettingsFromConfig_DefaultRules(t *testing.T) {
	cfg, err := config.Parse([]byte("version: \"1\"\n"))
	require.NoError(t, err)

	settings := settingsFromConfig(cfg)
	assert.Nil(t, settings.Rules)

	pub, err := profiles.NewPublisher(settings)
	require.NoError(t, err)
	assert.Equal(t, profiles.DefaultRules(), pub.Settings().Rules)
}
