package eventstore

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunSummary is the read model of one publish run.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Version      string         `json:"version"`
	Commit       string         `json:"commit,omitempty"`
	Status       string         `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Duration     time.Duration  `json:"duration,omitempty"`
	Tags         []string       `json:"tags"`
	Files        int            `json:"files"`
	Replacements map[string]int `json:"replacements,omitempty"`
	ErrorStep    string         `json:"error_step,omitempty"`
	ErrorTag     string         `json:"error_tag,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// RunHistoryProjection keeps a bounded, newest-first view of publish runs
// rebuilt from the event store.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewRunHistoryProjection creates a projection backed by store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from every stored event.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	return nil
}

// Apply processes a single event.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *RunHistoryProjection) applyEventLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}

	summary, exists := p.runs[runID]
	if !exists {
		summary = &RunSummary{
			RunID:     runID,
			Status:    RunStatusRunning,
			StartedAt: event.Timestamp(),
		}
		p.runs[runID] = summary
	}

	switch event.Type() {
	case TypePublishStarted:
		var meta PublishStartedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Version = meta.Version
			summary.Commit = meta.Commit
		}
		summary.StartedAt = event.Timestamp()

	case TypeTagPublished:
		var meta TagPublishedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Tags = append(summary.Tags, meta.Tag)
			summary.Files += meta.Files
			if summary.Replacements == nil {
				summary.Replacements = make(map[string]int)
			}
			for k, v := range meta.Replacements {
				summary.Replacements[k] += v
			}
		}

	case TypePublishCompleted:
		p.finishLocked(summary, event.Timestamp(), RunStatusCompleted)

	case TypePublishFailed:
		var meta PublishFailedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.ErrorStep = meta.Step
			summary.ErrorTag = meta.Tag
			summary.ErrorMessage = meta.Error
		}
		p.finishLocked(summary, event.Timestamp(), RunStatusFailed)
	}
}

func (p *RunHistoryProjection) finishLocked(summary *RunSummary, at time.Time, status string) {
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
	summary.Status = status
	p.pruneLocked()
}

// pruneLocked drops the oldest finished runs beyond maxSize. Running runs are kept.
func (p *RunHistoryProjection) pruneLocked() {
	finished := make([]*RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		if s.Status != RunStatusRunning {
			finished = append(finished, s)
		}
	}
	if len(finished) <= p.maxSize {
		return
	}
	sortNewestFirst(finished)
	for _, s := range finished[p.maxSize:] {
		delete(p.runs, s.RunID)
	}
}

func sortNewestFirst(runs []*RunSummary) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}

// History returns copies of the known runs, newest first.
func (p *RunHistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runs := make([]*RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		runs = append(runs, s)
	}
	sortNewestFirst(runs)

	out := make([]RunSummary, len(runs))
	for i, s := range runs {
		out[i] = s.clone()
	}
	return out
}

// Run returns the summary of one run.
func (p *RunHistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return s.clone(), true
}

// clone returns a copy that shares no mutable state with s.
func (s *RunSummary) clone() RunSummary {
	c := *s
	c.Tags = slices.Clone(s.Tags)
	c.Replacements = maps.Clone(s.Replacements)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
