package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stepDuration *prom.HistogramVec
	runDuration  prom.Histogram
	stepResults  *prom.CounterVec
	runOutcomes  *prom.CounterVec
	replacements *prom.CounterVec
	lastSuccess  prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil registry gets a private one so tests never touch the global registerer.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "profilepub",
			Name:      "step_duration_seconds",
			Help:      "Duration of individual publish steps (clean, copy, rewrite)",
			Buckets:   prom.DefBuckets,
		}, []string{"step"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "profilepub",
			Name:      "run_duration_seconds",
			Help:      "Total publish run duration",
			Buckets:   prom.DefBuckets,
		}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "profilepub",
			Name:      "step_results_total",
			Help:      "Step result counts by outcome",
		}, []string{"step", "result"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "profilepub",
			Name:      "run_outcomes_total",
			Help:      "Publish runs by final status",
		}, []string{"result"}),
		replacements: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "profilepub",
			Name:      "replacements_total",
			Help:      "Placeholder occurrences rewritten into URLs",
		}, []string{"placeholder"}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: "profilepub",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful publish run",
		}),
	}
	reg.MustRegister(pr.stepDuration, pr.runDuration, pr.stepResults, pr.runOutcomes, pr.replacements, pr.lastSuccess)
	return pr
}

func (p *PrometheusRecorder) ObserveStepDuration(step string, d time.Duration) {
	p.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(step string, result ResultLabel) {
	p.stepResults.WithLabelValues(step, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(result ResultLabel) {
	p.runOutcomes.WithLabelValues(string(result)).Inc()
	if result == ResultSuccess {
		p.lastSuccess.SetToCurrentTime()
	}
}

func (p *PrometheusRecorder) AddReplacements(placeholder string, n int) {
	if n <= 0 {
		return
	}
	p.replacements.WithLabelValues(placeholder).Add(float64(n))
}
