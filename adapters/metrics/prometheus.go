// Package metrics exports moderation results as Prometheus metrics.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/elum-utils/toxicity/interfaces"
)

var _ interfaces.ProcessedHandler = (*Collector)(nil)

// Collector counts decisions per severity and records the score distribution.
//
// Metrics:
//   - toxicity_moderations_total{severity,toxic}
//   - toxicity_score
//   - toxicity_fallbacks_total
type Collector struct {
	Moderations *prometheus.CounterVec
	Score       prometheus.Histogram
	Fallbacks   prometheus.Counter
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Moderations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxicity_moderations_total",
				Help: "Total number of moderation decisions",
			},
			[]string{"severity", "toxic"},
		),
		Score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "toxicity_score",
			Help:    "Distribution of final toxicity scores",
			Buckets: []float64{0.2, 0.4, 0.5, 0.6, 0.8, 1},
		}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toxicity_fallbacks_total",
			Help: "Decisions that fell back to rule scoring after a classifier failure",
		}),
	}
	if reg != nil {
		for _, m := range []prometheus.Collector{c.Moderations, c.Score, c.Fallbacks} {
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Collector) OnProcessed(_ context.Context, e interfaces.Event) error {
	c.Moderations.WithLabelValues(e.Severity.String(), strconv.FormatBool(e.Toxic)).Inc()
	c.Score.Observe(e.Score)
	if e.Fallback {
		c.Fallbacks.Inc()
	}
	return nil
}
