// Package metrics emits relay timings and counters.
//
// Names follow the statsd convention used by existing dashboards
// ("<prefix>.airbrake.request.fail.timeout"); the Prometheus sink carries the
// dotted suffix as the "name" label so dashboards keep one series per event.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives timing and counter events.
type Sink interface {
	Timing(name string, d time.Duration)
	Increment(name string)
}

// Event names, relative to the configured prefix.
const (
	HTTPRequest = "http.request"

	AirbrakeRequest                = "airbrake.request"
	AirbrakeRequestSuccess         = "airbrake.request.success"
	AirbrakeRequestFailRateLimited = "airbrake.request.fail.ratelimited"
	AirbrakeRequestFailXML         = "airbrake.request.fail.xml"
	AirbrakeRequestFailTimeout     = "airbrake.request.fail.timeout"
	AirbrakeRequestFailError       = "airbrake.request.fail.error"

	SentryRequest            = "sentry.request"
	SentryRequestSuccess     = "sentry.request.success"
	SentryRequestFailTimeout = "sentry.request.fail.timeout"
	SentryRequestFailError   = "sentry.request.fail.error"
	SentryRequestFailEncode  = "sentry.request.fail.encode"
	SentryTranslateFail      = "sentry.translate.fail"
	SentryTranslateSkipped   = "sentry.translate.skipped"

	CorrelationStoreFail = "redis.fail"
)

var (
	durationBuckets = []float64{
		0.005, /* 5ms */
		0.025, /* 25ms */
		0.1,   /* 100ms */
		0.5,   /* 500ms */
		1.0,   /* 1s */
		5.0,   /* 5s */
		10.0,  /* 10s */
		30.0,  /* 30s */
	}
)

// PrometheusSink records events in a Prometheus registry.
type PrometheusSink struct {
	prefix  string
	events  *prometheus.CounterVec
	timings *prometheus.HistogramVec
}

// NewPrometheusSink registers the relay collectors with reg. prefix is
// prepended to every event name ("airbrake-proxy" + "." + name).
func NewPrometheusSink(reg prometheus.Registerer, prefix string) *PrometheusSink {
	s := &PrometheusSink{
		prefix: strings.TrimSuffix(prefix, "."),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "airbrake_proxy",
				Name:      "events_total",
				Help:      "A counter of relay events, labelled by dotted event name.",
			},
			[]string{"name"},
		),
		timings: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "airbrake_proxy",
				Name:      "duration_seconds",
				Help:      "A histogram of request latencies, labelled by dotted event name.",
				Buckets:   durationBuckets,
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(s.events, s.timings)
	return s
}

func (s *PrometheusSink) Timing(name string, d time.Duration) {
	s.timings.WithLabelValues(s.qualify(name)).Observe(d.Seconds())
}

func (s *PrometheusSink) Increment(name string) {
	s.events.WithLabelValues(s.qualify(name)).Inc()
}

func (s *PrometheusSink) qualify(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "." + name
}

// Recorder is an in-memory Sink. Tests use it to assert on emitted events.
type Recorder struct {
	mu       sync.Mutex
	counters []string
	timings  []string
}

func (r *Recorder) Timing(name string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings = append(r.timings, name)
}

func (r *Recorder) Increment(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, name)
}

// Counters returns the counter names in emission order.
func (r *Recorder) Counters() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.counters...)
}

// Timings returns the timing names in emission order.
func (r *Recorder) Timings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.timings...)
}

// Count returns how many times the counter name was incremented.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counters {
		if c == name {
			n++
		}
	}
	return n
}
