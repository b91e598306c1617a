package eventstore

import (
	"encoding/json"
	"time"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
)

// Event type names.
const (
	TypePublishStarted   = "PublishStarted"
	TypeTagPublished     = "TagPublished"
	TypePublishCompleted = "PublishCompleted"
	TypePublishFailed    = "PublishFailed"
)

// PublishStartedMeta describes the run being started.
type PublishStartedMeta struct {
	Version     string   `json:"version"`
	Commit      string   `json:"commit,omitempty"`
	Tags        []string `json:"tags"`
	TemplateDir string   `json:"template_dir,omitempty"`
	OutputRoot  string   `json:"output_root,omitempty"`
}

// PublishStarted is emitted when a publish run begins.
type PublishStarted struct {
	BaseEvent
	Meta PublishStartedMeta
}

// NewPublishStarted creates a PublishStarted event.
func NewPublishStarted(runID string, meta PublishStartedMeta) (*PublishStarted, error) {
	base, err := newBase(runID, TypePublishStarted, meta)
	if err != nil {
		return nil, err
	}
	return &PublishStarted{BaseEvent: base, Meta: meta}, nil
}

// TagPublishedMeta describes one finished tag copy.
type TagPublishedMeta struct {
	Tag          string         `json:"tag"`
	Files        int            `json:"files"`
	Replacements map[string]int `json:"replacements"`
	DurationMS   int64          `json:"duration_ms"`
}

// TagPublished is emitted when a tag copy is cleaned, copied and rewritten.
type TagPublished struct {
	BaseEvent
	Meta TagPublishedMeta
}

// NewTagPublished creates a TagPublished event.
func NewTagPublished(runID string, meta TagPublishedMeta) (*TagPublished, error) {
	base, err := newBase(runID, TypeTagPublished, meta)
	if err != nil {
		return nil, err
	}
	return &TagPublished{BaseEvent: base, Meta: meta}, nil
}

// PublishCompletedMeta summarizes a successful run.
type PublishCompletedMeta struct {
	Tags         []string `json:"tags"`
	Replacements int      `json:"replacements"`
	DurationMS   int64    `json:"duration_ms"`
}

// PublishCompleted is emitted when every tag was published.
type PublishCompleted struct {
	BaseEvent
	Meta PublishCompletedMeta
}

// NewPublishCompleted creates a PublishCompleted event.
func NewPublishCompleted(runID string, meta PublishCompletedMeta) (*PublishCompleted, error) {
	base, err := newBase(runID, TypePublishCompleted, meta)
	if err != nil {
		return nil, err
	}
	return &PublishCompleted{BaseEvent: base, Meta: meta}, nil
}

// PublishFailedMeta names where a run stopped.
type PublishFailedMeta struct {
	Step  string `json:"step,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error"`
}

// PublishFailed is emitted when a run aborts.
type PublishFailed struct {
	BaseEvent
	Meta PublishFailedMeta
}

// NewPublishFailed creates a PublishFailed event.
func NewPublishFailed(runID string, meta PublishFailedMeta) (*PublishFailed, error) {
	base, err := newBase(runID, TypePublishFailed, meta)
	if err != nil {
		return nil, err
	}
	return &PublishFailed{BaseEvent: base, Meta: meta}, nil
}

func newBase(runID, eventType string, meta any) (BaseEvent, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return BaseEvent{}, ferrors.EventStoreError("failed to marshal event payload").
			WithCause(err).
			WithContext("run_id", runID).
			WithContext("event_type", eventType).
			Build()
	}
	return BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}
