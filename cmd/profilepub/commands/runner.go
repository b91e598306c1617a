package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/fairspec/profilepub/internal/config"
	"github.com/fairspec/profilepub/internal/eventstore"
	"github.com/fairspec/profilepub/internal/logfields"
	"github.com/fairspec/profilepub/internal/metrics"
	"github.com/fairspec/profilepub/internal/notify"
	"github.com/fairspec/profilepub/internal/profiles"
	"github.com/fairspec/profilepub/internal/retry"
)

// runner performs publish runs with the optional history, notification and
// metrics integrations attached.
type runner struct {
	cfg      *config.Config
	out      io.Writer
	recorder metrics.Recorder
	store    eventstore.Store
	notifier *notify.Notifier
}

type runnerOptions struct {
	history  bool
	notify   bool
	recorder metrics.Recorder
}

// newRunner opens the integrations enabled by cfg and opts. A history store
// that cannot be opened is logged and skipped.
func newRunner(cfg *config.Config, out io.Writer, opts runnerOptions) *runner {
	r := &runner{cfg: cfg, out: out, recorder: opts.recorder}
	if r.recorder == nil {
		r.recorder = metrics.NoopRecorder{}
	}

	if opts.history && cfg.History.Enabled {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			slog.Warn("Run history disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			r.store = store
		}
	}

	if opts.notify && cfg.Notify.Enabled() {
		policy := retry.NewPolicy(retry.BackoffMode(cfg.Notify.Backoff), cfg.NotifyRetryInitial(), 0, cfg.Notify.Retries)
		r.notifier = notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject, cfg.NotifyTimeout(), cfg.ProfilesBaseURL(),
			notify.WithRetry(policy))
		slog.Debug("Profile notifications enabled", slog.String("subject", r.notifier.Subject()))
	}
	return r
}

func (r *runner) Close() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		slog.Warn("Failed to close run history", logfields.Error(err))
	}
}

// publish runs one publish of explicitVersion, or of the version in the
// release metadata file when it is empty.
func (r *runner) publish(ctx context.Context, explicitVersion string) (*profiles.Report, error) {
	rel, err := resolveRelease(r.cfg, explicitVersion)
	if err != nil {
		return nil, err
	}

	settings := settingsFromConfig(r.cfg)
	opts := []profiles.Option{
		profiles.WithRecorder(r.recorder),
		profiles.WithObserver(&progressObserver{out: r.out}),
	}
	if r.store != nil {
		opts = append(opts, profiles.WithObserver(eventstore.NewRunRecorder(r.store, nil, settings)))
	}
	if r.notifier != nil {
		opts = append(opts, profiles.WithObserver(r.notifier.Observer(ctx)))
	}

	pub, err := profiles.NewPublisher(settings, opts...)
	if err != nil {
		return nil, err
	}
	return pub.Publish(ctx, rel)
}
