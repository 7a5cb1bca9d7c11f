// Package metrics publishes Prometheus collectors for the registry, scoped
// to commits, reveals, resolutions, slashes, and callback dispatch: the
// lifecycle transitions an operator actually needs to page on. A private
// registry keeps the collectors from colliding with a host process's own;
// Handler() exposes them for scraping under the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oraclenet/registry/domain/oracle"
)

// Registry holds the registry's own Prometheus collectors, kept private from
// the default global registry so embedding the package never collides with a
// host process's existing metrics.
var Registry = prometheus.NewRegistry()

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oracle_registry",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight admin API requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oracle_registry",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of admin API requests handled.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "oracle_registry",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of admin API requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
	}, []string{"method", "path"})

	commitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oracle_registry",
		Subsystem: "votes",
		Name:      "commits_total",
		Help:      "Total number of CommitVote calls, by outcome.",
	}, []string{"result"})

	revealsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oracle_registry",
		Subsystem: "votes",
		Name:      "reveals_total",
		Help:      "Total number of RevealVote calls, by outcome.",
	}, []string{"result"})

	resolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oracle_registry",
		Subsystem: "queries",
		Name:      "resolutions_total",
		Help:      "Total number of queries resolved, by strategy and terminal phase.",
	}, []string{"strategy", "phase"})

	resolutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "oracle_registry",
		Subsystem: "queries",
		Name:      "resolution_duration_seconds",
		Help:      "Wall time from query creation to resolution.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1s to ~3 days
	}, []string{"strategy"})

	slashesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oracle_registry",
		Subsystem: "voters",
		Name:      "slashes_total",
		Help:      "Total number of stake slashes applied, by reason.",
	}, []string{"reason"})

	slashedAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oracle_registry",
		Subsystem: "voters",
		Name:      "slashed_amount_total",
		Help:      "Total stake amount slashed, by reason.",
	}, []string{"reason"})

	dispatcherLastDispatch = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "oracle_registry",
		Subsystem: "dispatcher",
		Name:      "last_callback_dispatch_timestamp_seconds",
		Help:      "Unix time of the last successful callback dispatch, per chain. Subtract from time() for staleness.",
	}, []string{"chain"})

	activeQueries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "oracle_registry",
		Subsystem: "queries",
		Name:      "active",
		Help:      "Current number of queries in CommitPhase or RevealPhase, by phase.",
	}, []string{"phase"})
)

func init() {
	Registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		httpInFlight,
		httpRequests,
		httpDuration,
		commitsTotal,
		revealsTotal,
		resolutionsTotal,
		resolutionDuration,
		slashesTotal,
		slashedAmount,
		dispatcherLastDispatch,
		activeQueries,
	)
}

// Handler exposes the registry's collectors for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an http.Handler with the inflight/requests/duration
// collectors.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(r.Method, r.URL.Path, statusBucket(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func statusBucket(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// RecordCommit records a CommitVote outcome. result is "ok" or the
// oracle.ErrorKind string for a rejected commit.
func RecordCommit(result string) {
	commitsTotal.WithLabelValues(result).Inc()
}

// RecordReveal records a RevealVote outcome.
func RecordReveal(result string) {
	revealsTotal.WithLabelValues(result).Inc()
}

// RecordResolution records a query reaching Resolved or Expired, along with
// the wall time it took from creation.
func RecordResolution(strategy oracle.Strategy, phase oracle.Phase, age time.Duration) {
	resolutionsTotal.WithLabelValues(string(strategy), string(phase)).Inc()
	resolutionDuration.WithLabelValues(string(strategy)).Observe(age.Seconds())
}

// RecordSlash records a stake slash of amount for reason ("incorrect" or
// "no_reveal").
func RecordSlash(reason string, amount oracle.Amount) {
	slashesTotal.WithLabelValues(reason).Inc()
	if amount > 0 {
		slashedAmount.WithLabelValues(reason).Add(float64(amount))
	}
}

// RecordCallbackDispatch marks a successful callback dispatch to chain at the
// given time.
func RecordCallbackDispatch(chain oracle.ChainID, at time.Time) {
	dispatcherLastDispatch.WithLabelValues(string(chain)).Set(float64(at.Unix()))
}

// SetActiveQueries records the current count of queries sitting in phase.
func SetActiveQueries(phase oracle.Phase, count int) {
	activeQueries.WithLabelValues(string(phase)).Set(float64(count))
}
