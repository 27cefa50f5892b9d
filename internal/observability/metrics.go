package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Outcome labels for SeedRuns.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// SeedRuns counts seeder invocations by outcome.
	SeedRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaapi_seed_runs_total",
		Help: "Total number of seeder runs by outcome",
	}, []string{"outcome"})

	// SeedRunDuration records how long a seeder run took, hashing included.
	SeedRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spaapi_seed_run_duration_seconds",
		Help:    "Seeder run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// RecordsCreated counts rows inserted through repositories by table.
	RecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaapi_repository_records_created_total",
		Help: "Total number of records created by table",
	}, []string{"table"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaapi_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

// ObserveSeedRun records the outcome and duration of a run that started at start.
func ObserveSeedRun(start time.Time, err error) {
	SeedRunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		SeedRuns.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	SeedRuns.WithLabelValues(OutcomeSuccess).Inc()
}

// PushMetrics sends the default registry to a Prometheus Pushgateway.
// Batch commands exit before a scrape could happen, so they push instead.
func PushMetrics(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	pusher := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer)
	if runID := RunIDFromContext(ctx); runID != "" {
		pusher = pusher.Grouping("instance", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
