package metrics

import "github.com/prometheus/client_golang/prometheus"

// BackendMetrics exposes counters/histograms for calls to the booking backend.
type BackendMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	staleDiscards  *prometheus.CounterVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	m := &BackendMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detailing",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total backend REST calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "detailing",
			Subsystem: "backend",
			Name:      "request_latency_seconds",
			Help:      "Latency of backend REST calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detailing",
			Subsystem: "query",
			Name:      "stale_discards_total",
			Help:      "Responses dropped because a newer request superseded them",
		}, []string{"scope"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.staleDiscards)
	return m
}

func (m *BackendMetrics) ObserveRequest(endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *BackendMetrics) ObserveStale(scope string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(scope).Inc()
}
