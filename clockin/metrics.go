package clockin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts admission outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	lockWait prometheus.Histogram
	notify   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clockin",
			Name:      "submissions_total",
			Help:      "Clock-in submissions by outcome.",
		}, []string{"source", "outcome"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clockin",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the admission lock.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 20},
		}),
		notify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clockin",
			Name:      "notifications_total",
			Help:      "Downstream notifications by status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.lockWait, m.notify)
	}
	return m
}

func (m *Metrics) observeOutcome(source string, r Result) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !r.Accepted {
		outcome = string(r.Reason)
	}
	m.outcomes.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) observeLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) observeNotify(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.notify.WithLabelValues(status).Inc()
}
