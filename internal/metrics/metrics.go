package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "erpadmin"

// Metrics holds the business and HTTP collectors. A nil *Metrics is a no-op.
type Metrics struct {
	exchanges    *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	defects      prometheus.Counter
	lockTimeouts *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_exchanges_total",
			Help:      "Applied order exchanges by outcome note.",
		}, []string{"note"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_transitions_total",
			Help:      "Dispatch status changes by target status.",
		}, []string{"status"}),
		defects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defects_reported_total",
			Help:      "Inventory items reported defective.",
		}),
		lockTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_timeouts_total",
			Help:      "Record lock acquisitions that timed out.",
		}, []string{"kind"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.exchanges, m.transitions, m.defects, m.lockTimeouts, m.httpDuration)
	return m
}

func (m *Metrics) IncExchange(note string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(normalizeLabel(note)).Inc()
}

func (m *Metrics) IncDispatchTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) IncDefect() {
	if m == nil {
		return
	}
	m.defects.Inc()
}

func (m *Metrics) IncLockTimeout(kind string) {
	if m == nil {
		return
	}
	m.lockTimeouts.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
