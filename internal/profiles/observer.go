package profiles

import "time"

// StepName identifies one step of a tag's publish pipeline.
type StepName string

const (
	StepClean   StepName = "clean"
	StepCopy    StepName = "copy"
	StepRewrite StepName = "rewrite"
)

// Observer receives progress callbacks from a publish run. Callbacks are
// invoked synchronously on the publishing goroutine.
type Observer interface {
	OnRunStart(r *Report)
	OnStepStart(runID, tag string, step StepName)
	OnStepComplete(runID, tag string, step StepName, d time.Duration, err error)
	OnTagComplete(runID string, t TagReport)
	OnRunComplete(r *Report, err error)
}

// NoopObserver ignores every callback. Embed it to implement a subset.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(*Report)                                            {}
func (NoopObserver) OnStepStart(string, string, StepName)                          {}
func (NoopObserver) OnStepComplete(string, string, StepName, time.Duration, error) {}
func (NoopObserver) OnTagComplete(string, TagReport)                               {}
func (NoopObserver) OnRunComplete(*Report, error)                                  {}

// Observers fans callbacks out to several observers in order.
type Observers []Observer

func (obs Observers) OnRunStart(r *Report) {
	for _, o := range obs {
		o.OnRunStart(r)
	}
}

func (obs Observers) OnStepStart(runID, tag string, step StepName) {
	for _, o := range obs {
		o.OnStepStart(runID, tag, step)
	}
}

func (obs Observers) OnStepComplete(runID, tag string, step StepName, d time.Duration, err error) {
	for _, o := range obs {
		o.OnStepComplete(runID, tag, step, d, err)
	}
}

func (obs Observers) OnTagComplete(runID string, t TagReport) {
	for _, o := range obs {
		o.OnTagComplete(runID, t)
	}
}

func (obs Observers) OnRunComplete(r *Report, err error) {
	for _, o := range obs {
		o.OnRunComplete(r, err)
	}
}
