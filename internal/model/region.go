// Package model defines the domain types shared across the catchment engine:
// granularity levels, administrative areas, geofences, and calculation results.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Level identifies a boundary granularity level in the UK ITL/LAD hierarchy.
type Level string

const (
	LevelITL1 Level = "ITL1"
	LevelITL2 Level = "ITL2"
	LevelITL3 Level = "ITL3"
	LevelLAD  Level = "LAD"
)

// Levels lists all supported granularity levels, coarse to fine.
var Levels = []Level{LevelITL1, LevelITL2, LevelITL3, LevelLAD}

// ParseLevel normalises and validates a level string.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Levels {
		if l == known {
			return l, nil
		}
	}
	return "", eris.Errorf("model: unknown granularity level %q", s)
}

// Scenario selects which measure of a forecast observation is read.
type Scenario string

const (
	ScenarioBaseline Scenario = "baseline"
	ScenarioUpside   Scenario = "upside"
	ScenarioDownside Scenario = "downside"
)

// ParseScenario normalises and validates a scenario string. Empty input
// defaults to baseline.
func ParseScenario(s string) (Scenario, error) {
	switch Scenario(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScenarioBaseline:
		return ScenarioBaseline, nil
	case ScenarioUpside:
		return ScenarioUpside, nil
	case ScenarioDownside:
		return ScenarioDownside, nil
	}
	return "", eris.Errorf("model: unknown scenario %q", s)
}

// AdministrativeArea is one boundary polygon at a given granularity level.
// Immutable once loaded; owned by the boundary store.
type AdministrativeArea struct {
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Level     Level              `json:"level"`
	Geometry  *geom.MultiPolygon `json:"-"`
	AreaKm2   float64            `json:"area_km2"`
	BBox      [4]float64         `json:"-"` // minLng, minLat, maxLng, maxLat
}
