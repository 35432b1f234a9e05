package verifier

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/satcity/internal/metrics"
)

// Metrics represents the gate metrics
type Metrics struct {
	// Successful VerifyAndUpdate calls
	updates prometheus.Counter
	// Failed calls, by error class
	failures *prometheus.CounterVec
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	var failures prometheus.Collector
	if m.failures != nil {
		failures = m.failures
	}
	return metrics.Register(reg, m.updates, failures)
}

func (m *Metrics) updated() {
	metrics.CounterInc(m.updates)
}

func (m *Metrics) failed(c Class) {
	if m.failures == nil {
		return
	}
	m.failures.WithLabelValues(c.String()).Inc()
}

// GetPrometheusMetrics return the gate metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) (*Metrics, error) {
	constLabels, err := metrics.ParseLabels(labelsWithValues...)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "verifier",
			Name:        "root_updates_total",
			Help:        "Accepted proofs",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "verifier",
			Name:        "call_failures_total",
			Help:        "Rejected calls by error class",
			ConstLabels: constLabels,
		}, []string{"class"}),
	}, nil
}

// NilMetrics will return the non operational metrics
func NilMetrics() *Metrics {
	return &Metrics{}
}
