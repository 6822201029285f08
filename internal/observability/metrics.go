package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const namespace = "fraudshield"

// Metrics holds the Prometheus collectors of the dashboard API.
// Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	entitlementChecks *prometheus.CounterVec
	accessDecisions   *prometheus.CounterVec
	lifecycleStates   *prometheus.CounterVec
	actionTransitions *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		entitlementChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "entitlement",
				Name:      "checks_total",
				Help:      "Entitlement checks by feature and outcome",
			},
			[]string{"feature", "allowed"},
		),
		accessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "access",
				Name:      "decisions_total",
				Help:      "Administrative privilege decisions by privilege and outcome",
			},
			[]string{"privilege", "allowed"},
		),
		lifecycleStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exclusion",
				Name:      "classifications_total",
				Help:      "Exclusion records classified by lifecycle state",
			},
			[]string{"state"},
		),
		actionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "action",
				Name:      "transitions_total",
				Help:      "Action state transitions by target state",
			},
			[]string{"state"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "action",
				Name:      "notifications_total",
				Help:      "Transient notifications emitted by kind",
			},
			[]string{"kind"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.entitlementChecks,
		m.accessDecisions,
		m.lifecycleStates,
		m.actionTransitions,
		m.notifications,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEntitlementCheck counts one entitlement check
func (m *Metrics) RecordEntitlementCheck(feature string, allowed bool) {
	m.entitlementChecks.WithLabelValues(feature, strconv.FormatBool(allowed)).Inc()
}

// RecordAccessDecision counts one privilege decision
func (m *Metrics) RecordAccessDecision(privilege string, allowed bool) {
	m.accessDecisions.WithLabelValues(privilege, strconv.FormatBool(allowed)).Inc()
}

// RecordLifecycleState counts one classified exclusion record
func (m *Metrics) RecordLifecycleState(state string) {
	m.lifecycleStates.WithLabelValues(state).Inc()
}

// RecordActionTransition counts one action state transition
func (m *Metrics) RecordActionTransition(state string) {
	m.actionTransitions.WithLabelValues(state).Inc()
}

// RecordNotification counts one transient notification
func (m *Metrics) RecordNotification(kind string) {
	m.notifications.WithLabelValues(kind).Inc()
}

// CacheStatsFunc reports cumulative hits and misses and the current size of a cache
type CacheStatsFunc func() (hits, misses uint64, size int)

// RegisterPlanCache exports plan cache statistics, read at scrape time
func (m *Metrics) RegisterPlanCache(stats CacheStatsFunc) error {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "plan_cache", Name: name, Help: help}
	}

	var err error
	err = multierr.Append(err, m.registry.Register(prometheus.NewCounterFunc(
		prometheus.CounterOpts(opts("hits_total", "Plan lookups served from the cache")),
		func() float64 {
			hits, _, _ := stats()
			return float64(hits)
		},
	)))
	err = multierr.Append(err, m.registry.Register(prometheus.NewCounterFunc(
		prometheus.CounterOpts(opts("misses_total", "Plan lookups that went to the database")),
		func() float64 {
			_, misses, _ := stats()
			return float64(misses)
		},
	)))
	err = multierr.Append(err, m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts(opts("entries", "Organizations currently cached")),
		func() float64 {
			_, _, size := stats()
			return float64(size)
		},
	)))
	return err
}

// RegisterActionSessions exports the number of sessions holding action state
func (m *Metrics) RegisterActionSessions(count func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "sessions",
			Help:      "Sessions currently holding action state",
		},
		func() float64 { return float64(count()) },
	))
}

// Middleware records request count and latency per chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
