// Package metrics defines the metric-lookup contract the aggregator consumes
// and the observation semantics shared by its implementations.
package metrics

import (
	"context"
	"fmt"

	"github.com/regioniq/catchment/internal/model"
)

// Metric identifiers in the RegionIQ catalogue.
const (
	MetricPopulation = "population"
	MetricEmployment = "emp_total"
	MetricGDHI       = "gdhi_total"
)

// CatchmentMetrics lists the metrics the catchment aggregation reads.
var CatchmentMetrics = []string{MetricPopulation, MetricEmployment, MetricGDHI}

// Snapshot maps area code to the metric values observed for one
// (level, year, scenario) request. Areas with no data are simply absent.
type Snapshot map[string]model.MetricValues

// Source is the external metric-lookup collaborator. Implementations are
// backed by the hosted data API, Postgres, or a local SQLite snapshot.
type Source interface {
	// Snapshot returns metric values for every area at the level that has
	// data for the year/scenario.
	Snapshot(ctx context.Context, level model.Level, year int, scenario model.Scenario) (Snapshot, error)
}

// FetchError reports that the metric snapshot could not be retrieved. It is
// fatal to the calculation and surfaced distinctly from boundary errors so
// the user can tell which half of the pipeline failed.
type FetchError struct {
	Level    model.Level
	Year     int
	Scenario model.Scenario
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("metrics: fetch %s/%d/%s: %v", e.Level, e.Year, e.Scenario, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Observation is one stored metric observation row, shared by the store and
// ingestion layers.
type Observation struct {
	RegionCode  string      `json:"region_code"`
	RegionLevel model.Level `json:"region_level"`
	MetricID    string      `json:"metric_id"`
	Period      int         `json:"period"`
	Value       *float64    `json:"value"`
	CILower     *float64    `json:"ci_lower"`
	CIUpper     *float64    `json:"ci_upper"`
	DataType    string      `json:"data_type"` // "historical" or "forecast"
}

// MeasureForScenario maps a scenario to the observation measure it reads:
// upside takes the upper confidence bound, downside the lower, baseline the
// central value.
func MeasureForScenario(scenario model.Scenario) string {
	switch scenario {
	case model.ScenarioUpside:
		return "ci_upper"
	case model.ScenarioDownside:
		return "ci_lower"
	default:
		return "value"
	}
}

// PickValue selects the observation value for a measure. Historical rows
// always read the central value; forecast rows missing the requested bound
// fall back to it.
func PickValue(obs Observation, measure string) *float64 {
	if obs.DataType == "historical" {
		return obs.Value
	}
	var v *float64
	switch measure {
	case "ci_upper":
		v = obs.CIUpper
	case "ci_lower":
		v = obs.CILower
	default:
		v = obs.Value
	}
	if v == nil {
		return obs.Value
	}
	return v
}

// Apply folds an observation into a snapshot under the scenario's measure.
func (s Snapshot) Apply(obs Observation, scenario model.Scenario) {
	v := PickValue(obs, MeasureForScenario(scenario))
	if v == nil {
		return
	}
	mv := s[obs.RegionCode]
	switch obs.MetricID {
	case MetricPopulation:
		mv.Population = v
	case MetricEmployment:
		mv.Employment = v
	case MetricGDHI:
		mv.GDHI = v
	default:
		return
	}
	s[obs.RegionCode] = mv
}
