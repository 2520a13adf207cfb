package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

func fp(v float64) *float64 { return &v }

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "obs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteSnapshot(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.InsertObservations(ctx, []metrics.Observation{
		{RegionCode: "E06000001", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 2023, Value: fp(92000), DataType: "historical"},
		{RegionCode: "E06000001", RegionLevel: model.LevelLAD, MetricID: metrics.MetricEmployment, Period: 2023, Value: fp(41000), DataType: "historical"},
		{RegionCode: "E06000002", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 2023, Value: fp(148000), DataType: "historical"},
		// Wrong year, wrong level, and an irrelevant metric.
		{RegionCode: "E06000001", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 2022, Value: fp(91000), DataType: "historical"},
		{RegionCode: "TLC", RegionLevel: model.LevelITL1, MetricID: metrics.MetricPopulation, Period: 2023, Value: fp(2.6e6), DataType: "historical"},
		{RegionCode: "E06000001", RegionLevel: model.LevelLAD, MetricID: "gva_total", Period: 2023, Value: fp(3000), DataType: "historical"},
	}))

	snap, err := s.Snapshot(ctx, model.LevelLAD, 2023, model.ScenarioBaseline)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, 92000.0, *snap["E06000001"].Population)
	assert.Equal(t, 41000.0, *snap["E06000001"].Employment)
	assert.Nil(t, snap["E06000001"].GDHI)
	assert.Equal(t, 148000.0, *snap["E06000002"].Population)
}

func TestSQLiteSnapshotScenarios(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.InsertObservations(ctx, []metrics.Observation{
		{RegionCode: "E06000001", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 2030,
			Value: fp(95000), CILower: fp(90000), CIUpper: fp(100000), DataType: "forecast"},
		// Historical rows keep their central value under any scenario.
		{RegionCode: "E06000002", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 2030,
			Value: fp(150000), CIUpper: fp(999999), DataType: "historical"},
	}))

	baseline, err := s.Snapshot(ctx, model.LevelLAD, 2030, model.ScenarioBaseline)
	require.NoError(t, err)
	assert.Equal(t, 95000.0, *baseline["E06000001"].Population)

	upside, err := s.Snapshot(ctx, model.LevelLAD, 2030, model.ScenarioUpside)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, *upside["E06000001"].Population)
	assert.Equal(t, 150000.0, *upside["E06000002"].Population)

	downside, err := s.Snapshot(ctx, model.LevelLAD, 2030, model.ScenarioDownside)
	require.NoError(t, err)
	assert.Equal(t, 90000.0, *downside["E06000001"].Population)
}

func TestSQLiteSnapshotEmptyYear(t *testing.T) {
	s := newTestSQLite(t)
	snap, err := s.Snapshot(context.Background(), model.LevelLAD, 1890, model.ScenarioBaseline)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSQLiteUpsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	obs := metrics.Observation{RegionCode: "E06000001", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 2023, Value: fp(92000)}
	require.NoError(t, s.InsertObservations(ctx, []metrics.Observation{obs}))

	obs.Value = fp(92500)
	require.NoError(t, s.InsertObservations(ctx, []metrics.Observation{obs}))

	snap, err := s.Snapshot(ctx, model.LevelLAD, 2023, model.ScenarioBaseline)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 92500.0, *snap["E06000001"].Population)
}

func TestSQLiteYears(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	minYear, maxYear, err := s.Years(ctx, metrics.MetricPopulation)
	require.NoError(t, err)
	assert.Zero(t, minYear)
	assert.Zero(t, maxYear)

	require.NoError(t, s.InsertObservations(ctx, []metrics.Observation{
		{RegionCode: "A", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 1991, Value: fp(1)},
		{RegionCode: "A", RegionLevel: model.LevelLAD, MetricID: metrics.MetricPopulation, Period: 2050, Value: fp(2)},
	}))

	minYear, maxYear, err = s.Years(ctx, metrics.MetricPopulation)
	require.NoError(t, err)
	assert.Equal(t, 1991, minYear)
	assert.Equal(t, 2050, maxYear)
}
