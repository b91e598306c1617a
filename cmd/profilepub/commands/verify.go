package commands

import (
	"fmt"
	"io"
	"path"

	"github.com/fairspec/profilepub/internal/config"
	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/profiles"
)

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	ReleaseVersion string `name:"release-version" help:"Version to verify (default: version from the release metadata file)"`
}

func (v *VerifyCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	rel, err := resolveRelease(cfg, v.ReleaseVersion)
	if err != nil {
		return err
	}
	pub, err := profiles.NewPublisher(settingsFromConfig(cfg))
	if err != nil {
		return err
	}

	findings, err := pub.Verify(rel.Version)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to verify published profiles").
			WithContext("output_root", cfg.Profiles.OutputRoot).
			Build()
	}

	out := g.out()
	for _, f := range findings {
		printFinding(out, f)
	}
	if len(findings) > 0 {
		return ferrors.ValidationError("published profiles failed verification").
			WithContext("findings", len(findings)).
			Build()
	}

	_, _ = fmt.Fprintf(out, "Published profiles %s verified (%v)\n", rel.Version, pub.Tags(rel.Version))
	return nil
}

func printFinding(out io.Writer, f profiles.Finding) {
	switch f.Kind {
	case profiles.FindingMissingCopy:
		_, _ = fmt.Fprintf(out, "%s: published copy is missing\n", f.Tag)
	case profiles.FindingMissingFile:
		_, _ = fmt.Fprintf(out, "%s: missing from published copy\n", path.Join(f.Tag, f.File))
	case profiles.FindingExtraFile:
		_, _ = fmt.Fprintf(out, "%s: not present in the template tree\n", path.Join(f.Tag, f.File))
	case profiles.FindingLeftoverToken:
		_, _ = fmt.Fprintf(out, "%s:%d: unresolved placeholder %s\n", path.Join(f.Tag, f.File), f.Line, f.Token)
	}
}
