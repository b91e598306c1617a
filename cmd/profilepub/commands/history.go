package commands

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/fairspec/profilepub/internal/config"
	"github.com/fairspec/profilepub/internal/eventstore"
	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `help:"Maximum number of runs to show (default: history.limit)"`
	RunID string `name:"run" help:"Show the details of one run by ID"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return ferrors.ConfigError("run history is disabled (history.enabled: false)").Build()
	}

	limit := h.Limit
	if limit <= 0 {
		limit = cfg.History.Limit
	}

	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	size := limit
	if h.RunID != "" {
		size = math.MaxInt
	}
	projection := eventstore.NewRunHistoryProjection(store, size)
	if err := projection.Rebuild(context.Background()); err != nil {
		return err
	}

	out := g.out()
	if h.RunID != "" {
		run, ok := projection.Run(h.RunID)
		if !ok {
			return ferrors.NewError(ferrors.CategoryNotFound, "publish run not found").
				Fatal().
				WithContext("run_id", h.RunID).
				Build()
		}
		printRunDetail(out, run)
		return nil
	}

	runs := projection.History()
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No publish runs recorded")
		return nil
	}
	if len(runs) > limit {
		runs = runs[:limit]
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  %-9s  %-10s  %s",
			run.StartedAt.Local().Format(time.DateTime), run.Status, run.Version, strings.Join(run.Tags, ","))
		switch run.Status {
		case eventstore.RunStatusCompleted:
			total := 0
			for _, n := range run.Replacements {
				total += n
			}
			line += fmt.Sprintf("  %d files, %d references, %s", run.Files, total, run.Duration.Round(time.Millisecond))
		case eventstore.RunStatusFailed:
			line += fmt.Sprintf("  %s %s: %s", run.ErrorStep, run.ErrorTag, run.ErrorMessage)
		}
		if run.Commit != "" {
			line += "  " + shortCommit(run.Commit)
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}

func printRunDetail(out io.Writer, run eventstore.RunSummary) {
	_, _ = fmt.Fprintf(out, "Run:      %s\n", run.RunID)
	_, _ = fmt.Fprintf(out, "Version:  %s\n", run.Version)
	if run.Commit != "" {
		_, _ = fmt.Fprintf(out, "Commit:   %s\n", run.Commit)
	}
	_, _ = fmt.Fprintf(out, "Status:   %s\n", run.Status)
	_, _ = fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		_, _ = fmt.Fprintf(out, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	}
	_, _ = fmt.Fprintf(out, "Tags:     %s\n", strings.Join(run.Tags, ", "))
	_, _ = fmt.Fprintf(out, "Files:    %d\n", run.Files)
	for _, placeholder := range slices.Sorted(maps.Keys(run.Replacements)) {
		_, _ = fmt.Fprintf(out, "  {%s}: %d\n", placeholder, run.Replacements[placeholder])
	}
	if run.Status == eventstore.RunStatusFailed {
		_, _ = fmt.Fprintf(out, "Error:    %s %s: %s\n", run.ErrorStep, run.ErrorTag, run.ErrorMessage)
	}
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
