package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpRequestsTotal   = "http_requests_total"
	httpRequestDuration = "http_request_duration_seconds"
	unmatchedRoute      = "unmatched"
)

// HTTPMiddleware counts requests and observes their latency by route pattern,
// so path parameters such as question ids do not explode the label space.
type HTTPMiddleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewHTTPMiddleware(server string) *HTTPMiddleware {
	labels := prometheus.Labels{"server": server}
	return &HTTPMiddleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   reviewEngine,
			Name:        httpRequestsTotal,
			Help:        "number of http requests partitioned by status code, method and route",
			ConstLabels: labels,
		}, []string{"code", "method", "route"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem:   reviewEngine,
			Name:        httpRequestDuration,
			Help:        "http request latency partitioned by status code, method and route",
			ConstLabels: labels,
			Buckets:     []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"code", "method", "route"}),
	}
}

func (m *HTTPMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := strconv.Itoa(ww.Status())
		m.requests.WithLabelValues(code, r.Method, route).Inc()
		m.latency.WithLabelValues(code, r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPMiddleware) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.latency}
}

// Register adds the collectors to reg. Already registered collectors are reused.
func (m *HTTPMiddleware) Register(reg prometheus.Registerer) error {
	if err := reg.Register(m.requests); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return err
		}
		m.requests = existing
	}
	if err := reg.Register(m.latency); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return err
		}
		m.latency = existing
	}
	return nil
}
