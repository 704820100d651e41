package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agent_runner"

// Metrics holds the collectors for the HTTP surface and agent runs.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Runs            *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RunPolls        prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   []float64{.05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120, 240},
			},
			[]string{"route"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Agent runs by final status.",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Time from thread creation to the final run status.",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 240},
			},
		),
		RunPolls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "run_polls_total",
				Help:      "Run status requests made while waiting for runs.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.RequestCount, m.RequestDuration, m.Runs, m.RunDuration, m.RunPolls} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveRun records the outcome of one run. A nil receiver is a no-op.
func (m *Metrics) ObserveRun(status string, seconds float64, polls int) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
	m.RunPolls.Add(float64(polls))
}
