package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRepositoriesTotal  = "resume.repositories.total"
	metricRepositoryDuration = "resume.repository.duration.seconds"
	metricCommitsTotal       = "resume.commits.scanned.total"
	metricEntriesTotal       = "resume.entries.total"

	attrStatus = "status"

	// StatusOK marks a repository processed successfully.
	StatusOK = "ok"
	// StatusError marks a repository that failed.
	StatusError = "error"
)

// durationBucketBoundaries covers a local walk of a few commits up to a
// slow first clone.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunMetrics holds the OTel instruments describing a changelog run.
type RunMetrics struct {
	repositoriesTotal  metric.Int64Counter
	repositoryDuration metric.Float64Histogram
	commitsTotal       metric.Int64Counter
	entriesTotal       metric.Int64Counter
}

// RepositoryStats summarizes the processing of one repository.
type RepositoryStats struct {
	Status   string
	Scanned  int
	Entries  int
	Duration time.Duration
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	repos, err := mt.Int64Counter(metricRepositoriesTotal,
		metric.WithDescription("Repositories processed, by status"),
		metric.WithUnit("{repository}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRepositoriesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricRepositoryDuration,
		metric.WithDescription("Per-repository processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRepositoryDuration, err)
	}

	commits, err := mt.Int64Counter(metricCommitsTotal,
		metric.WithDescription("Commits read while walking branches"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsTotal, err)
	}

	entries, err := mt.Int64Counter(metricEntriesTotal,
		metric.WithDescription("Changelog entries produced"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEntriesTotal, err)
	}

	return &RunMetrics{
		repositoriesTotal:  repos,
		repositoryDuration: duration,
		commitsTotal:       commits,
		entriesTotal:       entries,
	}, nil
}

// RecordRepository records the outcome of one repository.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRepository(ctx context.Context, stats RepositoryStats) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, stats.Status))

	rm.repositoriesTotal.Add(ctx, 1, attrs)
	rm.repositoryDuration.Record(ctx, stats.Duration.Seconds(), attrs)
	rm.commitsTotal.Add(ctx, int64(stats.Scanned))
	rm.entriesTotal.Add(ctx, int64(stats.Entries))
}
