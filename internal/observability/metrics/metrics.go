package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClaimsMetrics exposes counters/histograms for the claims engine.
type ClaimsMetrics struct {
	verificationsTotal *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	upstreamLatency    *prometheus.HistogramVec
}

func NewClaimsMetrics(reg prometheus.Registerer) *ClaimsMetrics {
	m := &ClaimsMetrics{
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "verification",
			Name:      "total",
			Help:      "Total member verification attempts",
		}, []string{"provider", "outcome"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "submission",
			Name:      "total",
			Help:      "Total claim submission attempts",
		}, []string{"provider", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of upstream insurer operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.verificationsTotal, m.submissionsTotal, m.upstreamLatency)
	return m
}

func (m *ClaimsMetrics) ObserveVerification(provider, outcome string) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *ClaimsMetrics) ObserveSubmission(provider, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *ClaimsMetrics) ObserveUpstreamLatency(provider, operation string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(provider, operation).Observe(seconds)
}
