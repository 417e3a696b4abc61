package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports controller activity to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	frames    *prometheus.CounterVec
	inference prometheus.Histogram
}

// NewMetrics creates the pipeline collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airwrite",
			Subsystem: "pipeline",
			Name:      "frames_total",
			Help:      "Frames offered to the controller, by outcome.",
		}, []string{"outcome"}),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airwrite",
			Subsystem: "pipeline",
			Name:      "inference_seconds",
			Help:      "Wall time of admitted pose estimator calls.",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.frames, m.inference} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register pipeline metrics: %w", err)
		}
	}
	// Pre-create every outcome series so dashboards see zeros.
	for _, o := range []Outcome{OutcomeDropped, OutcomePoint, OutcomeBreak, OutcomeFailed} {
		m.frames.WithLabelValues(o.String())
	}
	return m, nil
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeInference(d time.Duration) {
	if m == nil {
		return
	}
	m.inference.Observe(d.Seconds())
}
