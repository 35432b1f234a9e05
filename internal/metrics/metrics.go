// Package metrics holds nil-safe helpers over prometheus collectors so that
// components can run without a registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ParseLabels turns "k1", "v1", "k2", "v2" into const labels.
func ParseLabels(labelsWithValues ...string) (prometheus.Labels, error) {
	if len(labelsWithValues)%2 != 0 {
		return nil, fmt.Errorf("odd number of label arguments: %d", len(labelsWithValues))
	}

	labels := prometheus.Labels{}
	for i := 1; i < len(labelsWithValues); i += 2 {
		labels[labelsWithValues[i-1]] = labelsWithValues[i]
	}
	return labels, nil
}

func CounterInc(c prometheus.Counter) {
	if c == nil {
		return
	}
	c.Inc()
}

func AddCounter(c prometheus.Counter, v float64) {
	if c == nil {
		return
	}
	c.Add(v)
}

func SetGauge(g prometheus.Gauge, v float64) {
	if g == nil {
		return
	}
	g.Set(v)
}

func HistogramObserve(h prometheus.Histogram, v float64) {
	if h == nil {
		return
	}
	h.Observe(v)
}

// Register registers every non-nil collector with reg.
func Register(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if c == nil {
			continue
		}
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
