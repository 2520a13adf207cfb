package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresSnapshot(t *testing.T) {
	s, mock := newMockPostgres(t)

	rows := pgxmock.NewRows([]string{"region_code", "metric_id", "value", "ci_lower", "ci_upper", "data_type"}).
		AddRow("E06000001", metrics.MetricPopulation, fp(92000), (*float64)(nil), (*float64)(nil), "historical").
		AddRow("E06000001", metrics.MetricGDHI, fp(2100), (*float64)(nil), (*float64)(nil), "historical").
		AddRow("E06000002", metrics.MetricPopulation, fp(148000), fp(140000), fp(156000), "forecast")
	mock.ExpectQuery(`FROM lad_latest_all`).
		WithArgs(2023, metrics.CatchmentMetrics).
		WillReturnRows(rows)

	snap, err := s.Snapshot(context.Background(), model.LevelLAD, 2023, model.ScenarioUpside)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, 92000.0, *snap["E06000001"].Population)
	assert.Equal(t, 2100.0, *snap["E06000001"].GDHI)
	assert.Equal(t, 156000.0, *snap["E06000002"].Population, "upside reads the upper bound for forecasts")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotLevelTables(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`FROM itl1_latest_all`).
		WithArgs(2023, metrics.CatchmentMetrics).
		WillReturnRows(pgxmock.NewRows([]string{"region_code", "metric_id", "value", "ci_lower", "ci_upper", "data_type"}))

	snap, err := s.Snapshot(context.Background(), model.LevelITL1, 2023, model.ScenarioBaseline)
	require.NoError(t, err)
	assert.Empty(t, snap)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotUnknownLevel(t *testing.T) {
	s, _ := newMockPostgres(t)

	_, err := s.Snapshot(context.Background(), model.Level("NUTS0"), 2023, model.ScenarioBaseline)
	require.Error(t, err)
	var fe *metrics.FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestPostgresSnapshotQueryError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`FROM lad_latest_all`).
		WithArgs(2023, metrics.CatchmentMetrics).
		WillReturnError(errors.New("connection refused"))

	_, err := s.Snapshot(context.Background(), model.LevelLAD, 2023, model.ScenarioBaseline)
	require.Error(t, err)
	var fe *metrics.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, model.LevelLAD, fe.Level)
}

func TestPostgresYears(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT MIN\(period\), MAX\(period\) FROM lad_latest_all`).
		WithArgs(metrics.MetricPopulation).
		WillReturnRows(pgxmock.NewRows([]string{"min", "max"}).AddRow(fpInt(1991), fpInt(2050)))

	minYear, maxYear, err := s.Years(context.Background(), metrics.MetricPopulation)
	require.NoError(t, err)
	assert.Equal(t, 1991, minYear)
	assert.Equal(t, 2050, maxYear)

	mock.ExpectQuery(`SELECT MIN\(period\), MAX\(period\) FROM lad_latest_all`).
		WithArgs("gva_total").
		WillReturnRows(pgxmock.NewRows([]string{"min", "max"}).AddRow((*int)(nil), (*int)(nil)))

	minYear, maxYear, err = s.Years(context.Background(), "gva_total")
	require.NoError(t, err)
	assert.Zero(t, minYear)
	assert.Zero(t, maxYear)
	require.NoError(t, mock.ExpectationsWereMet())
}

func fpInt(v int) *int { return &v }
