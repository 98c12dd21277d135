// Package metrics records batch-job metrics for trendrank and pushes them to a Prometheus Pushgateway.
//
// A nil [*Recorder] is valid and records nothing, so callers never need to guard their calls.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "trendrank"

// Catalog request outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeAbsent       = "absent"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeServerError  = "server_error"
	OutcomeTransport    = "transport_error"
	OutcomeNoToken      = "no_token"
	OutcomeBreakerOpen  = "breaker_open"
)

// Recorder owns a private registry with the pipeline's counters and gauges.
type Recorder struct {
	registry *prometheus.Registry

	catalogRequests *prometheus.CounterVec
	catalogRetries  *prometheus.CounterVec
	catalogAbsent   prometheus.Counter
	rowsUpserted    *prometheus.CounterVec
	artistsDropped  prometheus.Counter
	jobDuration     *prometheus.GaugeVec
	lastSuccess     *prometheus.GaugeVec
}

// NewRecorder creates a [Recorder] backed by a fresh [prometheus.Registry].
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Recorder{
		registry: reg,
		catalogRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "requests_total",
			Help:      "Catalog HTTP attempts by outcome",
		}, []string{"outcome"}),
		catalogRetries: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "retries_total",
			Help:      "Catalog retries by reason",
		}, []string{"reason"}),
		catalogAbsent: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "absent_total",
			Help:      "Logical catalog calls that returned no data",
		}),
		rowsUpserted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rows_upserted_total",
			Help:      "Rows written with upserts by table",
		}, []string{"table"}),
		artistsDropped: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "artists_dropped_total",
			Help:      "Collected artists dropped for lacking an identity mapping",
		}),
		jobDuration: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Wall time of the last run by job",
		}, []string{"job"}),
		lastSuccess: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run by job",
		}, []string{"job"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// CatalogRequest counts a single HTTP attempt.
func (r *Recorder) CatalogRequest(outcome string) {
	if r == nil {
		return
	}
	r.catalogRequests.WithLabelValues(outcome).Inc()
}

// CatalogRetry counts a retry scheduled for reason.
func (r *Recorder) CatalogRetry(reason string) {
	if r == nil {
		return
	}
	r.catalogRetries.WithLabelValues(reason).Inc()
}

// CatalogAbsent counts a logical call that ended without data.
func (r *Recorder) CatalogAbsent() {
	if r == nil {
		return
	}
	r.catalogAbsent.Inc()
}

// RowsUpserted adds n rows written to table.
func (r *Recorder) RowsUpserted(table string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rowsUpserted.WithLabelValues(table).Add(float64(n))
}

// ArtistsDropped adds n artists skipped during persistence.
func (r *Recorder) ArtistsDropped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.artistsDropped.Add(float64(n))
}

// JobFinished records a job's duration and, on success, its completion time.
func (r *Recorder) JobFinished(job string, started, finished time.Time, ok bool) {
	if r == nil {
		return
	}
	r.jobDuration.WithLabelValues(job).Set(finished.Sub(started).Seconds())
	if ok {
		r.lastSuccess.WithLabelValues(job).Set(float64(finished.Unix()))
	}
}

// Push sends all collected metrics to the Pushgateway at url under jobName.
//
// An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, jobName string) error {
	if r == nil || url == "" {
		return nil
	}
	if err := push.New(url, jobName).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
