package commands

import (
	"fmt"
	"strings"

	"github.com/fairspec/profilepub/internal/config"
	"github.com/fairspec/profilepub/internal/profiles"
)

// RulesCmd implements the 'rules' command.
type RulesCmd struct {
	Tag string `help:"Tag to resolve reference URLs for (default: the latest tag)"`
}

func (c *RulesCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	pub, err := profiles.NewPublisher(settingsFromConfig(cfg))
	if err != nil {
		return err
	}

	settings := pub.Settings()
	tag := c.Tag
	if tag == "" {
		tag = settings.LatestTag
	}

	width := 0
	for _, rule := range settings.Rules {
		width = max(width, len(rule.Token()))
	}

	out := g.out()
	_, _ = fmt.Fprintf(out, "Rules for %s/%s\n", settings.BaseURL, tag)
	for _, rule := range settings.Rules {
		_, _ = fmt.Fprintf(out, "  %-*s  %s  [%s]\n",
			width, rule.Token(), rule.URL(settings.BaseURL, tag), strings.Join(rule.Targets(), ", "))
	}
	return nil
}
