package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_http_in_flight",
		Help: "In-flight HTTP requests",
	})
	EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_emitted_total",
			Help: "Outbound analytics calls by type",
		}, []string{"type"},
	)
	DescriptorsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_descriptors_skipped_total",
			Help: "Experiment references dropped during normalization",
		}, []string{"reason"},
	)
	SinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_sink_errors_total",
			Help: "Downstream sink write failures",
		}, []string{"sink"},
	)
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_sessions_active",
		Help: "Live adapter sessions",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight,
		EventsEmitted, DescriptorsSkipped, SinkErrors, SessionsActive)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
