package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairspec/profilepub/internal/config"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	ReleaseVersion string `name:"release-version" help:"Version to publish (default: version from the release metadata file)"`
	NoHistory      bool   `name:"no-history" help:"Do not record the run in the history store"`
	NoNotify       bool   `name:"no-notify" help:"Do not send the NATS notification"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := g.out()
	r := newRunner(cfg, out, runnerOptions{history: !p.NoHistory, notify: !p.NoNotify})
	defer r.Close()

	report, err := r.publish(ctx, p.ReleaseVersion)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Published profiles %s to %s (%d references updated in %s)\n",
		report.Version, cfg.Profiles.OutputRoot, report.TotalReplacements(), report.Duration.Round(time.Millisecond))
	return nil
}
