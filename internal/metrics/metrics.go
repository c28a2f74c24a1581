// Package metrics provides Prometheus instrumentation for the Bookshelf dashboard server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookshelf"

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status class.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route pattern.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CatalogRequestsTotal counts Book API calls by operation and result.
	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "requests_total",
			Help:      "Total Book API requests by operation and result.",
		},
		[]string{"op", "result"},
	)

	// CatalogRequestDuration observes Book API latency by operation.
	CatalogRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "request_duration_seconds",
			Help:      "Book API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	// RatingWritesTotal counts completed rating writes by outcome
	// (submitted, failed, undone, undo_failed, discarded).
	RatingWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rating",
			Name:      "writes_total",
			Help:      "Completed rating writes by outcome.",
		},
		[]string{"outcome"},
	)

	// RatingConflictsTotal counts submits rejected because another was in flight.
	RatingConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rating",
		Name:      "submit_conflicts_total",
		Help:      "Submits rejected while another write was in flight.",
	})

	// OpenSessions tracks rating edit sessions currently open.
	OpenSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rating",
		Name:      "open_sessions",
		Help:      "Number of open rating edit sessions.",
	})

	// SessionsExpiredTotal counts sessions closed by the idle sweeper.
	SessionsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rating",
		Name:      "sessions_expired_total",
		Help:      "Rating sessions closed after idling past their TTL.",
	})

	// IndexedBooks tracks documents in the local search index.
	IndexedBooks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "indexed_books",
		Help:      "Number of books in the local search index.",
	})

	// IndexRefreshDuration observes full catalog re-index runs.
	IndexRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of catalog re-index runs in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// SSEClients tracks connected event stream clients.
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sse",
		Name:      "clients",
		Help:      "Number of connected event stream clients.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		RatingWritesTotal,
		RatingConflictsTotal,
		OpenSessions,
		SessionsExpiredTotal,
		IndexedBooks,
		IndexRefreshDuration,
		SSEClients,
	)
}

// ObserveCatalog records one Book API call.
func ObserveCatalog(op string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CatalogRequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	CatalogRequestsTotal.WithLabelValues(op, result).Inc()
}

// Middleware records request metrics keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		// Route pattern, not the raw path, to keep label cardinality bounded.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(r.Method, route, statusBucket(ww.Status())).Inc()
	})
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
