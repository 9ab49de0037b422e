// Package metrics exposes Prometheus collectors for the state service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// stateWritesTotal counts accepted POST /api/state writes.
	stateWritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_state_writes_total",
			Help: "Total number of shared state writes applied by the store",
		},
	)

	// broadcastsTotal counts fan-outs, one per store change.
	broadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total number of snapshot broadcasts to subscribers",
		},
	)

	activeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_subscribers",
			Help: "Number of live update subscribers currently registered",
		},
	)

	// droppedSubscribersTotal counts subscribers removed after a failed send.
	droppedSubscribersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_dropped_subscribers_total",
			Help: "Total number of subscribers dropped after a delivery failure",
		},
	)

	// persistenceTotal records snapshot writes.
	// Labels:
	//   - backend: file, redis, postgres
	//   - status: success, failed, dropped
	persistenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_persistence_total",
			Help: "Total number of snapshot persistence attempts",
		},
		[]string{"backend", "status"},
	)

	adviceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_advice_requests_total",
			Help: "Total number of advice generation requests by outcome",
		},
		[]string{"outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(stateWritesTotal)
	prometheus.MustRegister(broadcastsTotal)
	prometheus.MustRegister(activeSubscribers)
	prometheus.MustRegister(droppedSubscribersTotal)
	prometheus.MustRegister(persistenceTotal)
	prometheus.MustRegister(adviceRequestsTotal)
	prometheus.MustRegister(httpRequestsTotal)
}

func RecordStateWrite() {
	stateWritesTotal.Inc()
}

func RecordBroadcast() {
	broadcastsTotal.Inc()
}

// SetSubscribers reports the current size of the subscriber registry.
func SetSubscribers(n int) {
	activeSubscribers.Set(float64(n))
}

func RecordSubscriberDropped() {
	droppedSubscribersTotal.Inc()
}

// RecordPersistence records one snapshot write outcome for a backend.
func RecordPersistence(backend, status string) {
	persistenceTotal.WithLabelValues(backend, status).Inc()
}

func RecordAdviceRequest(outcome string) {
	adviceRequestsTotal.WithLabelValues(outcome).Inc()
}

func RecordHTTPRequest(method, route, status string) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
}
