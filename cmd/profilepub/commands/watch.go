package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/fairspec/profilepub/internal/config"
	"github.com/fairspec/profilepub/internal/logfields"
	"github.com/fairspec/profilepub/internal/metrics"
	"github.com/fairspec/profilepub/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	ReleaseVersion string `name:"release-version" help:"Version to publish (default: version from the release metadata file)"`
	NoHistory      bool   `name:"no-history" help:"Do not record runs in the history store"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := runnerOptions{history: !w.NoHistory}
	if cfg.Watch.MetricsAddr != "" {
		reg := prom.NewRegistry()
		opts.recorder = metrics.NewPrometheusRecorder(reg)
		stop := serveMetrics(cfg.Watch.MetricsAddr, reg)
		defer stop()
	}

	r := newRunner(cfg, g.out(), opts)
	defer r.Close()

	if _, err := r.publish(ctx, w.ReleaseVersion); err != nil {
		slog.Error("Initial publish failed", logfields.Error(err))
	}

	watcher, err := watch.New(cfg.Profiles.TemplateDir, watch.Options{
		Debounce:       cfg.WatchDebounce(),
		ResyncInterval: cfg.ResyncInterval(),
	}, func(ctx context.Context, _ watch.Trigger) error {
		_, err := r.publish(ctx, w.ReleaseVersion)
		return err
	})
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// serveMetrics serves reg on addr at /metrics until the returned stop
// function is called.
func serveMetrics(addr string, reg *prom.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("Failed to stop metrics server", logfields.Error(err))
		}
	}
}
