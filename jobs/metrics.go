package jobs

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts processed background tasks.
type Metrics struct {
	processed *prometheus.CounterVec
}

// NewMetrics registers the job counters on reg. A nil reg leaves the
// counters unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_jobs_processed_total",
			Help: "Background tasks processed, labeled by task type and result.",
		}, []string{"task", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.processed)
	}
	return m
}

// Instrument wraps an Asynq handler so every run is counted.
func (m *Metrics) Instrument(task string, h asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		err := h(ctx, t)
		m.taskProcessed(task, err)
		return err
	}
}

func (m *Metrics) taskProcessed(task string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.processed.WithLabelValues(task, result).Inc()
}
