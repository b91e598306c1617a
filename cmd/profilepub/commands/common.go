package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/fairspec/profilepub/internal/config"
	"github.com/fairspec/profilepub/internal/profiles"
	"github.com/fairspec/profilepub/internal/release"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger

	// Out receives user-facing output. Nil means stdout.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"profilepub.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Publish    PublishCmd    `cmd:"" help:"Publish the versioned and latest copies of the profiles"`
	Verify     VerifyCmd     `cmd:"" help:"Check published copies for leftover placeholders and drift"`
	Rules      RulesCmd      `cmd:"" help:"Print the placeholder substitution rules"`
	History    HistoryCmd    `cmd:"" help:"Show recent publish runs"`
	Watch      WatchCmd      `cmd:"" help:"Republish the profiles whenever the templates change"`
	CheckLinks CheckLinksCmd `cmd:"" name:"check-links" help:"Find documentation links to unpublished profiles"`
	Init       InitCmd       `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// settingsFromConfig maps the configuration onto publisher settings. An
// empty rule list selects the built-in rule table.
func settingsFromConfig(cfg *config.Config) profiles.Settings {
	var rules profiles.Rules
	for _, rc := range cfg.Rules {
		rules = append(rules, profiles.Rule{
			Placeholder: rc.Placeholder,
			Path:        rc.Path,
			Files:       rc.Files,
			Extensions:  rc.Extensions,
		})
	}
	return profiles.Settings{
		TemplateDir: cfg.Profiles.TemplateDir,
		OutputRoot:  cfg.Profiles.OutputRoot,
		BaseURL:     cfg.ProfilesBaseURL(),
		LatestTag:   cfg.Profiles.LatestTag,
		Rules:       rules,
	}
}

// resolveRelease returns the release to publish. An explicit version wins
// over the release metadata file.
func resolveRelease(cfg *config.Config, explicit string) (profiles.Release, error) {
	version := strings.TrimSpace(explicit)
	if version == "" {
		v, err := release.ReadVersion(cfg.Release.MetadataFile)
		if err != nil {
			return profiles.Release{}, err
		}
		version = v
	}
	return profiles.Release{
		Version: version,
		Commit:  release.HeadCommit(filepath.Dir(cfg.Release.MetadataFile)),
	}, nil
}

// progressObserver prints one line per pipeline stage.
type progressObserver struct {
	profiles.NoopObserver
	out io.Writer
}

func (p *progressObserver) OnRunStart(rep *profiles.Report) {
	_, _ = fmt.Fprintf(p.out, "Publishing profiles %s (%s)\n", rep.Version, strings.Join(rep.Planned, ", "))
}

func (p *progressObserver) OnStepStart(_ string, tag string, step profiles.StepName) {
	switch step {
	case profiles.StepCopy:
		_, _ = fmt.Fprintf(p.out, "Copying profiles to %s\n", tag)
	case profiles.StepRewrite:
		_, _ = fmt.Fprintf(p.out, "Updating references in %s\n", tag)
	}
}

func (p *progressObserver) OnTagComplete(_ string, t profiles.TagReport) {
	_, _ = fmt.Fprintf(p.out, "  %s: %d files, %d references\n", t.Tag, t.Files, t.TotalReplacements())
}
