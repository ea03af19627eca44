// Package metrics holds the Prometheus collectors shared by the server,
// the query service and the ingest worker.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Prefix = "metricsdash_"

// Query outcomes
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeMalformed   = "malformed"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var httpRequestsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: Prefix + "http_requests_total",
		Help: "Number of HTTP requests by route, method and status code",
	},
	[]string{"route", "method", "code"},
)

var httpDurationHist = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    Prefix + "http_request_duration_seconds",
		Help:    "Time taken to serve an HTTP request",
		Buckets: durationBuckets,
	},
	[]string{"route"},
)

var fetchDurationHist = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    Prefix + "record_fetch_duration_seconds",
		Help:    "Time taken to fetch the record set from the store",
		Buckets: durationBuckets,
	},
	[]string{"backend", "outcome"},
)

var fetchedRecordsGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: Prefix + "records_fetched",
		Help: "Number of records returned by the last successful fetch",
	},
	[]string{"backend"},
)

var cacheLookupsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: Prefix + "record_cache_lookups_total",
		Help: "Record cache lookups by result",
	},
	[]string{"result"},
)

var queriesCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: Prefix + "queries_total",
		Help: "Dashboard queries by outcome",
	},
	[]string{"outcome"},
)

var ingestedBatchesCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: Prefix + "ingested_batches_total",
		Help: "Record batches consumed by the ingest worker by outcome",
	},
	[]string{"outcome"},
)

var ingestedRecordsCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: Prefix + "ingested_records_total",
		Help: "Records written by the ingest worker",
	},
)

var rateLimitedCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: Prefix + "rate_limited_requests_total",
		Help: "Requests rejected by the per-client rate limiter",
	},
	[]string{"route"},
)

var suspiciousRequestsCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: Prefix + "suspicious_requests_total",
		Help: "Requests matching a known attack pattern",
	},
)

func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	httpRequestsCounter.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDurationHist.WithLabelValues(route).Observe(duration.Seconds())
}

func RecordFetch(backend string, records int, err error, duration time.Duration) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	} else {
		fetchedRecordsGauge.WithLabelValues(backend).Set(float64(records))
	}
	fetchDurationHist.WithLabelValues(backend, outcome).Observe(duration.Seconds())
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsCounter.WithLabelValues(result).Inc()
}

func RecordQuery(outcome string) {
	queriesCounter.WithLabelValues(outcome).Inc()
}

func RecordIngestedBatch(outcome string, records int) {
	ingestedBatchesCounter.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		ingestedRecordsCounter.Add(float64(records))
	}
}

func RecordRateLimited(route string) {
	rateLimitedCounter.WithLabelValues(route).Inc()
}

func RecordSuspiciousRequest() {
	suspiciousRequestsCounter.Inc()
}
