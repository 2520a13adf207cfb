package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regioniq/catchment/internal/model"
)

func fp(v float64) *float64 { return &v }

func TestMeasureForScenario(t *testing.T) {
	assert.Equal(t, "value", MeasureForScenario(model.ScenarioBaseline))
	assert.Equal(t, "ci_upper", MeasureForScenario(model.ScenarioUpside))
	assert.Equal(t, "ci_lower", MeasureForScenario(model.ScenarioDownside))
	assert.Equal(t, "value", MeasureForScenario(model.Scenario("")))
}

func TestPickValue(t *testing.T) {
	forecast := Observation{
		DataType: "forecast",
		Value:    fp(100),
		CILower:  fp(90),
		CIUpper:  fp(110),
	}
	assert.Equal(t, 100.0, *PickValue(forecast, "value"))
	assert.Equal(t, 110.0, *PickValue(forecast, "ci_upper"))
	assert.Equal(t, 90.0, *PickValue(forecast, "ci_lower"))

	// Historical rows ignore the requested measure: confidence bounds only
	// exist for forecasts.
	historical := Observation{DataType: "historical", Value: fp(42), CIUpper: fp(99)}
	assert.Equal(t, 42.0, *PickValue(historical, "ci_upper"))

	// A forecast without the requested bound falls back to the central value.
	noBounds := Observation{DataType: "forecast", Value: fp(100)}
	assert.Equal(t, 100.0, *PickValue(noBounds, "ci_upper"))

	empty := Observation{DataType: "forecast"}
	assert.Nil(t, PickValue(empty, "value"))
}

func TestSnapshotApply(t *testing.T) {
	snap := Snapshot{}
	snap.Apply(Observation{RegionCode: "E06000001", MetricID: MetricPopulation, DataType: "historical", Value: fp(92000)}, model.ScenarioBaseline)
	snap.Apply(Observation{RegionCode: "E06000001", MetricID: MetricEmployment, DataType: "historical", Value: fp(40000)}, model.ScenarioBaseline)
	snap.Apply(Observation{RegionCode: "E06000002", MetricID: MetricGDHI, DataType: "forecast", Value: fp(3000), CIUpper: fp(3300)}, model.ScenarioUpside)

	// Unknown metrics and nil values leave the snapshot untouched.
	snap.Apply(Observation{RegionCode: "E06000001", MetricID: "gva_total", DataType: "historical", Value: fp(1)}, model.ScenarioBaseline)
	snap.Apply(Observation{RegionCode: "E06000003", MetricID: MetricPopulation, DataType: "historical"}, model.ScenarioBaseline)

	require.Len(t, snap, 2)
	assert.Equal(t, 92000.0, *snap["E06000001"].Population)
	assert.Equal(t, 40000.0, *snap["E06000001"].Employment)
	assert.Nil(t, snap["E06000001"].GDHI)
	assert.Equal(t, 3300.0, *snap["E06000002"].GDHI)
	assert.NotContains(t, snap, "E06000003")
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := assert.AnError
	err := &FetchError{Level: model.LevelLAD, Year: 2023, Scenario: model.ScenarioBaseline, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "2023")
	assert.Contains(t, err.Error(), "LAD")
}
