package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the API's private registry: the generic HTTP
// surface plus the search pipeline counters.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal         *prometheus.CounterVec
	searchCandidates    *prometheus.HistogramVec
	searchDuration      *prometheus.HistogramVec
	searchEmptyTotal    *prometheus.CounterVec
	rerankFallbackTotal *prometheus.CounterVec

	livePublishTotal prometheus.Counter
	liveSubscribers  prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiosk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kiosk",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful searches by candidate strategy.",
		},
		[]string{"service", "strategy"},
	)
	searchCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiosk",
			Subsystem: "search",
			Name:      "candidates",
			Help:      "Distribution of candidate set sizes per search.",
			Buckets:   []float64{0, 1, 3, 5, 10, 25, 50, 100},
		},
		[]string{"service", "strategy"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiosk",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	searchEmptyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk",
			Subsystem: "search",
			Name:      "empty_total",
			Help:      "Total searches that produced no candidates.",
		},
		[]string{"service", "strategy"},
	)
	rerankFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk",
			Subsystem: "search",
			Name:      "rerank_fallback_total",
			Help:      "Total searches that degraded to candidate order.",
		},
		[]string{"service"},
	)
	livePublishTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kiosk",
			Subsystem: "live",
			Name:      "publish_total",
			Help:      "Total recommendation events published to live listeners.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	liveSubscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kiosk",
			Subsystem: "live",
			Name:      "subscribers",
			Help:      "Currently connected SSE subscribers.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchCandidates,
		searchDuration,
		searchEmptyTotal,
		rerankFallbackTotal,
		livePublishTotal,
		liveSubscribers,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		searchTotal:         searchTotal,
		searchCandidates:    searchCandidates,
		searchDuration:      searchDuration,
		searchEmptyTotal:    searchEmptyTotal,
		rerankFallbackTotal: rerankFallbackTotal,
		livePublishTotal:    livePublishTotal,
		liveSubscribers:     liveSubscribers,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/wines/") && path != "/api/wines/max-price":
		return "/api/wines/{wine_id}"
	case strings.HasPrefix(path, "/api/inventory/"):
		return "/api/inventory/{wine_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSearch(service, strategy string, candidates int, duration time.Duration) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.searchTotal.WithLabelValues(service, strategy).Inc()
	m.searchCandidates.WithLabelValues(service, strategy).Observe(float64(candidates))
	m.searchDuration.WithLabelValues(service, strategy).Observe(duration.Seconds())
	if candidates == 0 {
		m.searchEmptyTotal.WithLabelValues(service, strategy).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRerankFallback(service string) {
	m.rerankFallbackTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordLivePublish() {
	m.livePublishTotal.Inc()
}

func (m *HTTPServerMetrics) SubscriberConnected()    { m.liveSubscribers.Inc() }
func (m *HTTPServerMetrics) SubscriberDisconnected() { m.liveSubscribers.Dec() }

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
