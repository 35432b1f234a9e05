package sequencer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/satcity/internal/metrics"
)

// Metrics represents the sequencer metrics
type Metrics struct {
	// Wall time of backend proving calls
	proveSeconds prometheus.Histogram
	// Batches rejected by the transition program
	rejectedBatches prometheus.Counter
	// Blocks committed
	blocks prometheus.Counter
	// Height of the last committed block
	height prometheus.Gauge
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	return metrics.Register(reg, m.proveSeconds, m.rejectedBatches, m.blocks, m.height)
}

func (m *Metrics) observeProve(d time.Duration) {
	metrics.HistogramObserve(m.proveSeconds, d.Seconds())
}

func (m *Metrics) rejected() {
	metrics.CounterInc(m.rejectedBatches)
}

func (m *Metrics) committed(height uint64) {
	metrics.CounterInc(m.blocks)
	metrics.SetGauge(m.height, float64(height))
}

// GetPrometheusMetrics return the sequencer metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) (*Metrics, error) {
	constLabels, err := metrics.ParseLabels(labelsWithValues...)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		proveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "sequencer",
			Name:        "prove_seconds",
			Help:        "Time spent in the proving backend",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		rejectedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "sequencer",
			Name:        "rejected_batches_total",
			Help:        "Batches rejected by the transition program",
			ConstLabels: constLabels,
		}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "sequencer",
			Name:        "blocks_total",
			Help:        "Blocks committed",
			ConstLabels: constLabels,
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "sequencer",
			Name:        "height",
			Help:        "Height of the last committed block",
			ConstLabels: constLabels,
		}),
	}, nil
}

// NilMetrics will return the non operational metrics
func NilMetrics() *Metrics {
	return &Metrics{}
}
