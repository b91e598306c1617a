package eventstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairspec/profilepub/internal/profiles"
)

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunHistoryProjection_CompletedAndFailedRuns(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	appendEvent := func(e Event, err error) {
		t.Helper()
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, e.RunID(), e.Type(), e.Payload(), nil))
	}

	appendEvent(NewPublishStarted("ok", PublishStartedMeta{Version: "1.2.0", Commit: "abc", Tags: []string{"1.2.0", "latest"}}))
	appendEvent(NewTagPublished("ok", TagPublishedMeta{Tag: "1.2.0", Files: 4, Replacements: map[string]int{"dataset-ref": 2}}))
	appendEvent(NewTagPublished("ok", TagPublishedMeta{Tag: "latest", Files: 4, Replacements: map[string]int{"dataset-ref": 2}}))
	appendEvent(NewPublishCompleted("ok", PublishCompletedMeta{Tags: []string{"1.2.0", "latest"}, Replacements: 4}))

	time.Sleep(2 * time.Millisecond)
	appendEvent(NewPublishStarted("bad", PublishStartedMeta{Version: "1.3.0"}))
	appendEvent(NewPublishFailed("bad", PublishFailedMeta{Step: "rewrite", Tag: "1.3.0", Error: "substitution target missing"}))

	proj := NewRunHistoryProjection(store, 10)
	require.NoError(t, proj.Rebuild(ctx))

	history := proj.History()
	require.Len(t, history, 2)
	assert.Equal(t, "bad", history[0].RunID)
	assert.Equal(t, RunStatusFailed, history[0].Status)
	assert.Equal(t, "rewrite", history[0].ErrorStep)
	assert.Equal(t, "1.3.0", history[0].ErrorTag)

	ok, found := proj.Run("ok")
	require.True(t, found)
	assert.Equal(t, RunStatusCompleted, ok.Status)
	assert.Equal(t, "1.2.0", ok.Version)
	assert.Equal(t, "abc", ok.Commit)
	assert.Equal(t, []string{"1.2.0", "latest"}, ok.Tags)
	assert.Equal(t, 8, ok.Files)
	assert.Equal(t, 4, ok.Replacements["dataset-ref"])
	assert.NotNil(t, ok.CompletedAt)
}

func TestRunHistoryProjection_ReturnsIndependentCopies(t *testing.T) {
	proj := NewRunHistoryProjection(newMemoryStore(t), 10)
	apply := func(e Event, err error) {
		t.Helper()
		require.NoError(t, err)
		proj.Apply(e)
	}
	apply(NewPublishStarted("run", PublishStartedMeta{Version: "1.2.0", Tags: []string{"1.2.0", "latest"}}))
	apply(NewTagPublished("run", TagPublishedMeta{Tag: "1.2.0", Files: 4, Replacements: map[string]int{"dataset-ref": 2}}))
	apply(NewTagPublished("run", TagPublishedMeta{Tag: "latest", Files: 4, Replacements: map[string]int{"dataset-ref": 2}}))
	apply(NewPublishCompleted("run", PublishCompletedMeta{Tags: []string{"1.2.0", "latest"}, Replacements: 4}))

	history := proj.History()
	require.Len(t, history, 1)
	history[0].Tags[0] = "mutated"
	history[0].Replacements["dataset-ref"] = 99
	*history[0].CompletedAt = time.Time{}

	run, ok := proj.Run("run")
	require.True(t, ok)
	run.Tags[1] = "mutated"
	run.Replacements["other-ref"] = 1

	again, ok := proj.Run("run")
	require.True(t, ok)
	assert.Equal(t, []string{"1.2.0", "latest"}, again.Tags)
	assert.Equal(t, map[string]int{"dataset-ref": 4}, again.Replacements)
	require.NotNil(t, again.CompletedAt)
	assert.False(t, again.CompletedAt.IsZero())
}

func TestRunHistoryProjection_Bounded(t *testing.T) {
	proj := NewRunHistoryProjection(newMemoryStore(t), 2)
	base := time.Now()
	for i, id := range []string{"r1", "r2", "r3"} {
		at := base.Add(time.Duration(i) * time.Second)
		proj.Apply(&BaseEvent{EventRunID: id, EventType: TypePublishStarted, EventTimestamp: at, EventPayload: []byte(`{}`)})
		proj.Apply(&BaseEvent{EventRunID: id, EventType: TypePublishCompleted, EventTimestamp: at.Add(time.Millisecond), EventPayload: []byte(`{}`)})
	}
	proj.Apply(&BaseEvent{EventRunID: "r4", EventType: TypePublishStarted, EventTimestamp: base.Add(-time.Hour), EventPayload: []byte(`{}`)})

	history := proj.History()
	ids := make([]string, len(history))
	for i, h := range history {
		ids[i] = h.RunID
	}
	assert.Equal(t, []string{"r3", "r2", "r4"}, ids)
}

func TestRunRecorder_RecordsPublishRun(t *testing.T) {
	store := newMemoryStore(t)
	proj := NewRunHistoryProjection(store, 10)

	dir := t.TempDir()
	settings := profiles.Settings{
		TemplateDir: filepath.Join(dir, "profiles"),
		OutputRoot:  filepath.Join(dir, "out"),
		BaseURL:     "https://fairspec.org/profiles",
		Rules:       profiles.Rules{{Placeholder: "x-ref", Path: "x.json", Files: []string{"*.json"}}},
	}
	rec := NewRunRecorder(store, proj, settings)

	pub, err := profiles.NewPublisher(settings, profiles.WithObserver(rec))
	require.NoError(t, err)

	// The template directory does not exist yet, so the first run fails at copy.
	failed, err := pub.Publish(context.Background(), profiles.Release{Version: "1.0.0"})
	require.Error(t, err)

	summary, ok := proj.Run(failed.RunID)
	require.True(t, ok)
	assert.Equal(t, RunStatusFailed, summary.Status)
	assert.Equal(t, "copy", summary.ErrorStep)
	assert.Equal(t, "1.0.0", summary.ErrorTag)

	events, err := store.GetByRunID(t.Context(), failed.RunID)
	require.NoError(t, err)
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type()
	}
	assert.Equal(t, []string{TypePublishStarted, TypePublishFailed}, types)
}

type failingStore struct{ Store }

func (failingStore) Append(context.Context, string, string, []byte, map[string]string) error {
	return errors.New("disk full")
}

func TestRunRecorder_StoreFailureDoesNotPanic(t *testing.T) {
	rec := NewRunRecorder(failingStore{}, nil, profiles.Settings{})
	rec.OnRunStart(&profiles.Report{RunID: "x", Version: "1.0.0"})
	rec.OnRunComplete(&profiles.Report{RunID: "x"}, nil)
}
