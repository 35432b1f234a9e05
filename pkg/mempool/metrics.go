package mempool

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/satcity/internal/metrics"
)

// Metrics represents the queue metrics
type Metrics struct {
	// Transactions waiting for a batch
	pendingTxs prometheus.Gauge
	// Transactions accepted by AddTransaction
	addedTxs prometheus.Counter
	// Transactions handed out by GetTransactions
	drainedTxs prometheus.Counter
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	return metrics.Register(reg, m.pendingTxs, m.addedTxs, m.drainedTxs)
}

// GetPrometheusMetrics return the queue metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) (*Metrics, error) {
	constLabels, err := metrics.ParseLabels(labelsWithValues...)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		pendingTxs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "mempool",
			Name:        "pending_transactions",
			Help:        "Transactions waiting for a batch",
			ConstLabels: constLabels,
		}),
		addedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "mempool",
			Name:        "added_transactions_total",
			Help:        "Transactions added to the queue",
			ConstLabels: constLabels,
		}),
		drainedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "mempool",
			Name:        "drained_transactions_total",
			Help:        "Transactions removed by batch pulls",
			ConstLabels: constLabels,
		}),
	}, nil
}

// NilMetrics will return the non operational metrics
func NilMetrics() *Metrics {
	return &Metrics{}
}
