package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

// SQLiteStore holds a local observation snapshot in modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS observations (
	region_code  TEXT NOT NULL,
	region_level TEXT NOT NULL,
	metric_id    TEXT NOT NULL,
	period       INTEGER NOT NULL,
	value        REAL,
	ci_lower     REAL,
	ci_upper     REAL,
	data_type    TEXT NOT NULL DEFAULT 'historical',
	PRIMARY KEY (region_code, metric_id, period)
);

CREATE INDEX IF NOT EXISTS idx_obs_level_period ON observations(region_level, period, metric_id);
`

// Migrate creates the observation schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertObservations upserts a batch of observations in one transaction.
func (s *SQLiteStore) InsertObservations(ctx context.Context, obs []metrics.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (region_code, region_level, metric_id, period, value, ci_lower, ci_upper, data_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (region_code, metric_id, period) DO UPDATE SET
			region_level = excluded.region_level,
			value        = excluded.value,
			ci_lower     = excluded.ci_lower,
			ci_upper     = excluded.ci_upper,
			data_type    = excluded.data_type
	`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, o := range obs {
		dataType := o.DataType
		if dataType == "" {
			dataType = "historical"
		}
		if _, err := stmt.ExecContext(ctx,
			o.RegionCode, string(o.RegionLevel), o.MetricID, o.Period,
			o.Value, o.CILower, o.CIUpper, dataType,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert observation %s/%s/%d", o.RegionCode, o.MetricID, o.Period)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Snapshot returns the metric values for every area at the level with data
// for the year, with the measure chosen by the scenario.
func (s *SQLiteStore) Snapshot(ctx context.Context, level model.Level, year int, scenario model.Scenario) (metrics.Snapshot, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(metrics.CatchmentMetrics)), ",")
	query := `
		SELECT region_code, metric_id, value, ci_lower, ci_upper, data_type
		FROM observations
		WHERE region_level = ? AND period = ? AND metric_id IN (` + placeholders + `)`

	args := []any{string(level), year}
	for _, id := range metrics.CatchmentMetrics {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
			Err: eris.Wrap(err, "sqlite: query observations")}
	}
	defer func() { _ = rows.Close() }()

	snap := make(metrics.Snapshot)
	for rows.Next() {
		obs := metrics.Observation{RegionLevel: level, Period: year}
		if err := rows.Scan(&obs.RegionCode, &obs.MetricID, &obs.Value, &obs.CILower, &obs.CIUpper, &obs.DataType); err != nil {
			return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
				Err: eris.Wrap(err, "sqlite: scan observation")}
		}
		snap.Apply(obs, scenario)
	}
	if err := rows.Err(); err != nil {
		return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
			Err: eris.Wrap(err, "sqlite: iterate observations")}
	}
	return snap, nil
}

// Years returns the coverage range for a metric.
func (s *SQLiteStore) Years(ctx context.Context, metricID string) (int, int, error) {
	var minYear, maxYear sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(period), MAX(period) FROM observations WHERE metric_id = ?`, metricID,
	).Scan(&minYear, &maxYear)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "sqlite: coverage for %s", metricID)
	}
	if !minYear.Valid {
		return 0, 0, nil
	}
	return int(minYear.Int64), int(maxYear.Int64), nil
}
