// Package watch republishes the profile templates whenever they change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/fairspec/profilepub/internal/logfields"
)

// Trigger names why a republish ran.
type Trigger string

const (
	TriggerChange Trigger = "change"
	TriggerResync Trigger = "resync"
)

// RepublishFunc performs one publish run.
type RepublishFunc func(ctx context.Context, trigger Trigger) error

// Options tune a Watcher.
type Options struct {
	// Debounce is the quiet window after the last file event before a
	// republish starts.
	Debounce time.Duration

	// ResyncInterval schedules a periodic republish. Zero disables it.
	ResyncInterval time.Duration
}

// Watcher watches a template tree and republishes on changes. Runs never
// overlap.
type Watcher struct {
	root      string
	opts      Options
	republish RepublishFunc
	watcher   *fsnotify.Watcher
	trigger   chan struct{}
	runMu     sync.Mutex
}

// New creates a Watcher for root.
func New(root string, opts Options, fn RepublishFunc) (*Watcher, error) {
	if fn == nil {
		return nil, fmt.Errorf("republish function is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		root:      absRoot,
		opts:      opts,
		republish: fn,
		watcher:   w,
		trigger:   make(chan struct{}, 1),
	}, nil
}

// Run watches until ctx is cancelled. The file watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	if w.opts.ResyncInterval > 0 {
		scheduler, err := w.startResync(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Error("Error stopping resync scheduler", logfields.Error(err))
			}
		}()
	}

	slog.Info("Watching profile templates",
		logfields.Path(w.root),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("resync_interval", w.opts.ResyncInterval))

	go w.watchLoop(ctx)
	w.debounceLoop(ctx)

	slog.Info("Stopped watching profile templates")
	return nil
}

func (w *Watcher) startResync(ctx context.Context) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(w.opts.ResyncInterval),
		gocron.NewTask(func() {
			if err := w.run(ctx, TriggerResync); err != nil {
				slog.Error("Scheduled republish failed", logfields.Error(err))
			}
		}),
		gocron.WithName("profiles-resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create resync job: %w", err)
	}

	s.Start()
	return s, nil
}

// addRecursive watches dir and every directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}

			slog.Debug("Template change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
			w.notify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Template watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.trigger <- struct{}{}:
	default:
		// already pending
	}
}

// debounceLoop starts a republish once no event arrived for the debounce
// window.
func (w *Watcher) debounceLoop(ctx context.Context) {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.trigger:
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			if err := w.run(ctx, TriggerChange); err != nil {
				slog.Error("Republish failed", logfields.Error(err))
			}
		}
	}
}

// run performs one republish, serialized with every other run.
func (w *Watcher) run(ctx context.Context, trigger Trigger) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if ctx.Err() != nil {
		return nil
	}
	slog.Info("Republishing profiles", slog.String("trigger", string(trigger)))
	return w.republish(ctx, trigger)
}
