package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BackendCollectors instruments the outbound HTTP clients used to relay notices.
type BackendCollectors struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
}

func NewBackendCollectors(reg prometheus.Registerer) *BackendCollectors {
	c := &BackendCollectors{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "airbrake_proxy",
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "A counter for requests to relay backends.",
			},
			[]string{"backend", "code", "method"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "airbrake_proxy",
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "A histogram of latencies for requests to relay backends.",
				Buckets:   durationBuckets,
			},
			[]string{"backend", "code", "method"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "airbrake_proxy",
				Subsystem: "backend",
				Name:      "in_flight_requests",
				Help:      "A gauge of requests to relay backends currently being performed.",
			},
			[]string{"backend"},
		),
	}

	reg.MustRegister(c.requestsTotal, c.requestDuration, c.inFlight)
	return c
}

// RoundTripper wraps next with counters, latency and in-flight tracking for backend.
func (c *BackendCollectors) RoundTripper(backend string, next http.RoundTripper) http.RoundTripper {
	labels := prometheus.Labels{"backend": backend}

	rt := next
	rt = promhttp.InstrumentRoundTripperCounter(c.requestsTotal.MustCurryWith(labels), rt)
	rt = promhttp.InstrumentRoundTripperDuration(c.requestDuration.MustCurryWith(labels), rt)
	return promhttp.InstrumentRoundTripperInFlight(c.inFlight.With(labels), rt)
}
