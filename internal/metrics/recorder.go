package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for publish runs and their steps.
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStepResult(step string, result ResultLabel)
	IncRunOutcome(result ResultLabel)
	AddReplacements(placeholder string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncStepResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                 {}
func (NoopRecorder) AddReplacements(string, int)               {}
