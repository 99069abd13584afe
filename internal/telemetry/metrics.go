package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// RouteDecisions counts resolutions by outcome: matched, fallback, not_found.
	RouteDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_decisions_total",
		Help: "Routing resolutions by outcome",
	}, []string{"outcome"})

	// CacheLookups counts ruleset cache lookups by result: hit, miss, negative.
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ruleset_cache_lookups_total",
		Help: "Ruleset cache lookups by result",
	}, []string{"result"})

	// ClickWriteFailures counts click increments that could not be recorded.
	ClickWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "click_write_failures_total",
		Help: "Click counter increments that failed",
	})
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur, RouteDecisions, CacheLookups, ClickWriteFailures)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// get route pattern if available
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
