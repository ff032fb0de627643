// Package metrics holds the prometheus collectors of the messaging backend.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shopdesk"

// Event outcomes
const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
	OutcomeMalformed = "malformed"
	OutcomeIgnored   = "ignored"
	OutcomeMerged    = "merged"
)

// Metrics groups every collector exported by the service
type Metrics struct {
	realtimeEvents   *prometheus.CounterVec
	refetchCycles    prometheus.Counter
	lazyLoads        *prometheus.CounterVec
	sends            *prometheus.CounterVec
	markReadFailures prometheus.Counter
	hubClients       prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers all collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		realtimeEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_events_total",
				Help:      "Realtime message events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		refetchCycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_refetch_cycles_total",
			Help:      "Debounced inbox refetch-and-merge cycles",
		}),
		lazyLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inbox_conversation_loads_total",
				Help:      "Full conversation loads by outcome",
			},
			[]string{"outcome"},
		),
		sends: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "composer_sends_total",
				Help:      "Composer sends by route and outcome",
			},
			[]string{"route", "outcome"},
		),
		markReadFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mark_read_failures_total",
			Help:      "Best-effort mark-read calls that failed",
		}),
		hubClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_clients",
			Help:      "Connected websocket clients",
		}),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (m *Metrics) RealtimeEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RefetchCycle() {
	if m == nil {
		return
	}
	m.refetchCycles.Inc()
}

func (m *Metrics) ConversationLoad(err error) {
	if m == nil {
		return
	}
	m.lazyLoads.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) Send(route string, err error) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(route, outcome(err)).Inc()
}

func (m *Metrics) MarkReadFailure() {
	if m == nil {
		return
	}
	m.markReadFailures.Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.hubClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.hubClients.Dec()
}

// HTTPRequest records a finished request. path is the route pattern, not the raw URL.
func (m *Metrics) HTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
