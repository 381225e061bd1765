package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the ingestion
// kernel.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	sealsTotal      *prometheus.CounterVec
	replays         prometheus.Counter
	conflicts       prometheus.Counter
	transitions     *prometheus.CounterVec
	blocked         *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the kernel collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sealsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evidence_seals_total",
		Help: "Seal attempts by outcome",
	}, []string{"outcome"})

	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evidence_idempotent_replays_total",
		Help: "Seal requests resolved as idempotent replays",
	})

	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evidence_idempotency_conflicts_total",
		Help: "Seal requests refused over a conflicting external reference",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evidence_state_transitions_total",
		Help: "Successful ledger state transitions",
	}, []string{"from", "to"})

	blocked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evidence_state_transitions_blocked_total",
		Help: "Refused ledger state transitions",
	}, []string{"from", "to"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evidence_cache_hits_total",
		Help: "Evidence cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evidence_cache_misses_total",
		Help: "Evidence cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sealsTotal, replays, conflicts, transitions, blocked, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		sealsTotal:      sealsTotal,
		replays:         replays,
		conflicts:       conflicts,
		transitions:     transitions,
		blocked:         blocked,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSeal counts one seal attempt by outcome.
func (m *MetricsService) ObserveSeal(outcome string) {
	if m == nil {
		return
	}
	m.sealsTotal.WithLabelValues(outcome).Inc()
}

// ObserveIdempotentReplay counts one replay resolution.
func (m *MetricsService) ObserveIdempotentReplay() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

// ObserveIdempotencyConflict counts one conflict refusal.
func (m *MetricsService) ObserveIdempotencyConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// ObserveTransition counts one successful ledger transition.
func (m *MetricsService) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// ObserveTransitionBlocked counts one refused ledger transition.
func (m *MetricsService) ObserveTransitionBlocked(from, to string) {
	if m == nil {
		return
	}
	m.blocked.WithLabelValues(from, to).Inc()
}

// RecordCacheOperation counts evidence cache lookups.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
