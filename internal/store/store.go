// Package store provides observation stores that implement the engine's
// metric-lookup contract: a local SQLite snapshot for offline use and
// ingestion, and Postgres for deployments backed by the hosted data store.
package store

import (
	"context"

	"github.com/regioniq/catchment/internal/metrics"
)

// ObservationStore is a metric source that can also report its coverage.
type ObservationStore interface {
	metrics.Source

	// Years returns the coverage range for a metric, for CLI status output.
	Years(ctx context.Context, metricID string) (minYear, maxYear int, err error)

	Close() error
}
