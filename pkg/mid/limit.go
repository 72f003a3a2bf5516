package mid

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/docsift/docsift/pkg/metrics"
)

// RateLimit returns middleware enforcing a process-wide token bucket. A
// non-positive rps disables limiting.
func RateLimit(rps float64, burst int, log *slog.Logger) Middleware {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				log.Warn("rate limited", "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
				w.Header().Set("Retry-After", "1")
				writeDetail(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics returns middleware counting requests by method and status and
// timing them into reg.
func Metrics(reg *metrics.Registry) Middleware {
	dur := reg.Histogram("docsift_http_request_duration_seconds", "HTTP request duration", nil)
	inflight := reg.Gauge("docsift_http_requests_in_flight", "HTTP requests being served")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inflight.Inc()
			defer inflight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			dur.Since(start)
			reg.Counter(metrics.WithLabels("docsift_http_requests_total",
				"method", methodLabel(r.Method),
				"code", strconv.Itoa(sw.status),
			), "HTTP requests served").Inc()
		})
	}
}

// methodLabel bounds the method label to known verbs so arbitrary tokens
// cannot grow the registry.
func methodLabel(m string) string {
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodOptions, http.MethodHead:
		return m
	}
	return "other"
}
