package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// levelTables maps granularity levels to the hosted store's per-level
// latest-vintage views.
var levelTables = map[model.Level]string{
	model.LevelITL1: "itl1_latest_all",
	model.LevelITL2: "itl2_latest_all",
	model.LevelITL3: "itl3_latest_all",
	model.LevelLAD:  "lad_latest_all",
}

// PostgresStore reads observations from the hosted Postgres data store.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a pool to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; tests inject pgxmock here.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Snapshot returns metric values for every area at the level with data for
// the year, with the measure chosen by the scenario.
func (s *PostgresStore) Snapshot(ctx context.Context, level model.Level, year int, scenario model.Scenario) (metrics.Snapshot, error) {
	table, ok := levelTables[level]
	if !ok {
		return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
			Err: eris.Errorf("postgres: no table for level %s", level)}
	}

	// table comes from the fixed level map above, never from user input.
	query := `
		SELECT region_code, metric_id, value, ci_lower, ci_upper, data_type
		FROM ` + table + `
		WHERE period = $1 AND metric_id = ANY($2)`

	rows, err := s.pool.Query(ctx, query, year, metrics.CatchmentMetrics)
	if err != nil {
		return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
			Err: eris.Wrap(err, "postgres: query observations")}
	}
	defer rows.Close()

	snap := make(metrics.Snapshot)
	for rows.Next() {
		obs := metrics.Observation{RegionLevel: level, Period: year}
		if err := rows.Scan(&obs.RegionCode, &obs.MetricID, &obs.Value, &obs.CILower, &obs.CIUpper, &obs.DataType); err != nil {
			return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
				Err: eris.Wrap(err, "postgres: scan observation")}
		}
		snap.Apply(obs, scenario)
	}
	if err := rows.Err(); err != nil {
		return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
			Err: eris.Wrap(err, "postgres: iterate observations")}
	}
	return snap, nil
}

// Years returns the coverage range for a metric across all levels.
func (s *PostgresStore) Years(ctx context.Context, metricID string) (int, int, error) {
	var minYear, maxYear *int
	err := s.pool.QueryRow(ctx,
		`SELECT MIN(period), MAX(period) FROM lad_latest_all WHERE metric_id = $1`, metricID,
	).Scan(&minYear, &maxYear)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "postgres: coverage for %s", metricID)
	}
	if minYear == nil || maxYear == nil {
		return 0, 0, nil
	}
	return *minYear, *maxYear, nil
}
