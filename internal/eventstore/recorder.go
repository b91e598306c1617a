package eventstore

import (
	"context"
	"log/slog"
	"time"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/logfields"
	"github.com/fairspec/profilepub/internal/profiles"
)

// RunRecorder appends publish-run events to a Store as a profiles.Observer.
// Store failures are logged and never affect the run.
type RunRecorder struct {
	profiles.NoopObserver
	store       Store
	projection  *RunHistoryProjection
	templateDir string
	outputRoot  string
	timeout     time.Duration
}

// NewRunRecorder creates a recorder. projection may be nil; when set it is
// updated with every appended event.
func NewRunRecorder(store Store, projection *RunHistoryProjection, settings profiles.Settings) *RunRecorder {
	return &RunRecorder{
		store:       store,
		projection:  projection,
		templateDir: settings.TemplateDir,
		outputRoot:  settings.OutputRoot,
		timeout:     5 * time.Second,
	}
}

func (r *RunRecorder) OnRunStart(rep *profiles.Report) {
	r.record(NewPublishStarted(rep.RunID, PublishStartedMeta{
		Version:     rep.Version,
		Commit:      rep.Commit,
		Tags:        rep.Planned,
		TemplateDir: r.templateDir,
		OutputRoot:  r.outputRoot,
	}))
}

func (r *RunRecorder) OnTagComplete(runID string, t profiles.TagReport) {
	r.record(NewTagPublished(runID, TagPublishedMeta{
		Tag:          t.Tag,
		Files:        t.Files,
		Replacements: t.Replacements,
		DurationMS:   t.Duration.Milliseconds(),
	}))
}

func (r *RunRecorder) OnRunComplete(rep *profiles.Report, err error) {
	if err == nil {
		r.record(NewPublishCompleted(rep.RunID, PublishCompletedMeta{
			Tags:         rep.TagNames(),
			Replacements: rep.TotalReplacements(),
			DurationMS:   rep.Duration.Milliseconds(),
		}))
		return
	}

	meta := PublishFailedMeta{Error: err.Error()}
	if classified, ok := ferrors.AsClassified(err); ok {
		meta.Step, _ = classified.Context().GetString("step")
		meta.Tag, _ = classified.Context().GetString("tag")
		meta.Path, _ = classified.Context().GetString("path")
	}
	r.record(NewPublishFailed(rep.RunID, meta))
}

func (r *RunRecorder) record(event Event, buildErr error) {
	if buildErr != nil {
		slog.Warn("Failed to build run event", logfields.Error(buildErr))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Append(ctx, event.RunID(), event.Type(), event.Payload(), nil); err != nil {
		slog.Warn("Failed to record run event",
			logfields.RunID(event.RunID()),
			slog.String("event_type", event.Type()),
			logfields.Error(err))
		return
	}
	if r.projection != nil {
		r.projection.Apply(event)
	}
}
