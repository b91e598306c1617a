package commands

import (
	"context"
	"fmt"

	"github.com/fairspec/profilepub/internal/config"
	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/linkcheck"
)

// CheckLinksCmd implements the 'check-links' command.
type CheckLinksCmd struct {
	Content string `help:"Documentation content directory (default: site.content_dir)" type:"path"`
}

func (c *CheckLinksCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	contentDir := c.Content
	if contentDir == "" {
		contentDir = cfg.Site.ContentDir
	}
	if contentDir == "" {
		return ferrors.ValidationError("no content directory given (use --content or site.content_dir)").Build()
	}

	broken, err := linkcheck.NewChecker(cfg.ProfilesBaseURL(), cfg.Profiles.OutputRoot).Check(context.Background(), contentDir)
	if err != nil {
		return err
	}

	out := g.out()
	for _, b := range broken {
		_, _ = fmt.Fprintf(out, "%s: %s (no file at %s)\n", b.Source, b.URL, b.Target)
	}
	if len(broken) > 0 {
		return ferrors.ValidationError("documentation links to unpublished profiles").
			WithContext("broken", len(broken)).
			Build()
	}

	_, _ = fmt.Fprintln(out, "All profile links resolve")
	return nil
}
