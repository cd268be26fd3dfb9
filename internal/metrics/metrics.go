package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/daniyarbek/magic-link-auth/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Magic-link lifecycle

	LinksIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "links_issued_total",
		Help:      "Total magic links created.",
	})

	LinksConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "links_consumed_total",
		Help:      "Magic-link consumption attempts, by outcome.",
	}, []string{"outcome"})

	CredentialsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "credentials_issued_total",
		Help:      "Total bearer credentials minted via exchange.",
	})

	// Email delivery

	EmailSendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "email_send_total",
		Help:      "Magic-link email deliveries, by outcome.",
	}, []string{"outcome"})

	EmailSendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "auth",
		Name:      "email_send_duration_seconds",
		Help:      "Duration of magic-link email delivery calls.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
	})

	// Retention

	LinksPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "links_purged_total",
		Help:      "Expired magic links removed by the retention job.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auth",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		LinksIssuedTotal,
		LinksConsumedTotal,
		CredentialsIssuedTotal,
		EmailSendTotal,
		EmailSendDuration,
		LinksPurgedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer exposes Prometheus metrics and the health probes on a dedicated
// listener, kept off the public API port.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()), http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, result, status)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
