package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapdish_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapdish_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Domain metrics
	mealsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapdish_meals_created_total",
			Help: "Total number of meals created",
		},
	)

	ingredientsAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapdish_ingredients_added_total",
			Help: "Total number of ingredients attached to meals",
		},
	)

	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapdish_predictions_total",
			Help: "Total number of photo predictions by result",
		},
		[]string{"result"},
	)

	// Error metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapdish_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)
)

// Metrics returns a middleware that records Prometheus metrics.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			// The route pattern is only known once chi has routed the request.
			path := routePattern(r)
			status := strconv.Itoa(wrapped.status)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

			if wrapped.status >= 400 {
				errorType := "client_error"
				if wrapped.status >= 500 {
					errorType = "server_error"
				}
				errorsTotal.WithLabelValues(errorType).Inc()
			}
		})
	}
}

// routePattern returns the chi route pattern, falling back to a fixed label
// for unrouted requests to keep label cardinality bounded.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// IncrementMealsCreated increments the meals created counter.
func IncrementMealsCreated() {
	mealsCreatedTotal.Inc()
}

// AddIngredientsAdded adds n to the ingredients counter.
func AddIngredientsAdded(n int) {
	ingredientsAddedTotal.Add(float64(n))
}

// ObservePrediction counts a prediction by result ("ok", "invalid_image",
// "error").
func ObservePrediction(result string) {
	predictionsTotal.WithLabelValues(result).Inc()
}
