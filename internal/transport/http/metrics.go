package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var metricHTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "betpro_http_requests_total",
	Help: "HTTP requests by route pattern and status code.",
}, []string{"route", "status"})

func init() {
	prometheus.MustRegister(metricHTTPRequestsTotal)
}

// MetricsMiddleware counts requests by chi route pattern so path parameters
// do not explode label cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metricHTTPRequestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(status)).Inc()
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return "unmatched"
}
