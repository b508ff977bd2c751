// Package metrics provides Prometheus counters and histograms shared
// across the ingest acceptor and the three worker cohorts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder bundles every metric the pipeline emits. One instance per
// process, registered against the process's own registry.
type Recorder struct {
	claimedTotal     *prometheus.CounterVec
	processedTotal   *prometheus.CounterVec
	processingSecs   *prometheus.HistogramVec
	recoveredTotal   *prometheus.CounterVec
	dbQuerySecs      *prometheus.HistogramVec
	dbQueryErrors    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpRequestSecs  *prometheus.HistogramVec
}

// NewRecorder registers every metric against reg and returns the Recorder.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		claimedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salescontrol",
			Name:      "items_claimed_total",
			Help:      "Items claimed from the work queue, per cohort.",
		}, []string{"cohort"}),
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salescontrol",
			Name:      "items_processed_total",
			Help:      "Items finished processing, per cohort and terminal status.",
		}, []string{"cohort", "status"}),
		processingSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salescontrol",
			Name:      "item_processing_duration_seconds",
			Help:      "Wall-clock time spent processing one item, per cohort.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"cohort"}),
		recoveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salescontrol",
			Name:      "items_recovered_total",
			Help:      "Items reset from PROCESSING to a pre-claim state by the sweeper.",
		}, []string{"cohort"}),
		dbQuerySecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salescontrol",
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration, per SQL operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		dbQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salescontrol",
			Name:      "db_query_errors_total",
			Help:      "Database query failures, per SQL operation.",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salescontrol",
			Name:      "http_requests_total",
			Help:      "Ingest acceptor HTTP requests, per route and HTTP status text.",
		}, []string{"route", "status"}),
		httpRequestSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salescontrol",
			Name:      "http_request_duration_seconds",
			Help:      "Ingest acceptor HTTP request duration, per route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	collectors := []prometheus.Collector{
		r.claimedTotal, r.processedTotal, r.processingSecs, r.recoveredTotal,
		r.dbQuerySecs, r.dbQueryErrors, r.httpRequests, r.httpRequestSecs,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IncClaimed records one batch-claim of count items for a cohort.
func (r *Recorder) IncClaimed(cohort string, count int) {
	r.claimedTotal.WithLabelValues(cohort).Add(float64(count))
}

// IncProcessed records one item reaching a terminal status.
func (r *Recorder) IncProcessed(cohort, status string) {
	r.processedTotal.WithLabelValues(cohort, status).Inc()
}

// ObserveProcessingDuration records the wall-clock time for one item.
func (r *Recorder) ObserveProcessingDuration(cohort string, seconds float64) {
	r.processingSecs.WithLabelValues(cohort).Observe(seconds)
}

// IncRecovered records the sweeper requeuing n abandoned items.
func (r *Recorder) IncRecovered(cohort string, n int) {
	if n <= 0 {
		return
	}
	r.recoveredTotal.WithLabelValues(cohort).Add(float64(n))
}

// ObserveDBQueryDuration records one SQL statement's duration.
func (r *Recorder) ObserveDBQueryDuration(operation string, seconds float64) {
	r.dbQuerySecs.WithLabelValues(operation).Observe(seconds)
}

// IncDBQueryError records one SQL statement failure.
func (r *Recorder) IncDBQueryError(operation string) {
	r.dbQueryErrors.WithLabelValues(operation).Inc()
}

// IncHTTPRequest records one completed HTTP request.
func (r *Recorder) IncHTTPRequest(route, status string) {
	r.httpRequests.WithLabelValues(route, status).Inc()
}

// ObserveHTTPRequestDuration records one HTTP request's duration.
func (r *Recorder) ObserveHTTPRequestDuration(route string, seconds float64) {
	r.httpRequestSecs.WithLabelValues(route).Observe(seconds)
}
