package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage outcomes recorded by Metrics.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

// Metrics records stage outcomes and durations. A nil *Metrics records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Pipeline stage executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Time spent running a pipeline stage.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
	}
	for _, c := range []prometheus.Collector{m.outcomes, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(stage, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(stage, outcome).Inc()
	if outcome != outcomeSkipped {
		m.duration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	}
}
