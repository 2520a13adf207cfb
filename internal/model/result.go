package model

// MetricValues holds the raw metric observations for one area for the
// requested year and scenario. A nil field is a data gap: the area still
// contributes its present metrics but the missing one adds nothing.
type MetricValues struct {
	Population *float64 `json:"population,omitempty"`
	Employment *float64 `json:"employment,omitempty"`
	GDHI       *float64 `json:"gdhi,omitempty"`
}

// Empty reports whether every metric is missing.
func (v MetricValues) Empty() bool {
	return v.Population == nil && v.Employment == nil && v.GDHI == nil
}

// LADContribution records one overlapping area's share of the catchment.
// Metric fields are already scaled by Weight; a missing metric contributes
// zero so per-metric sums over contributions equal the result totals.
type LADContribution struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Weight          float64 `json:"weight"` // intersection area / total area, in [0,1]
	IntersectionKm2 float64 `json:"intersection_km2"`
	TotalKm2        float64 `json:"total_km2"`
	Population      float64 `json:"population"`
	Employment      float64 `json:"employment"`
	GDHI            float64 `json:"gdhi"`
}

// GeofenceResult is the output of one catchment calculation. Transient;
// handed to the UI/export layer and never persisted.
type GeofenceResult struct {
	TotalPopulation float64           `json:"total_population"`
	TotalEmployment float64           `json:"total_employment"`
	TotalGDHI       float64           `json:"total_gdhi"`
	Year            int               `json:"year"`
	Scenario        Scenario          `json:"scenario"`
	Level           Level             `json:"level"`
	AreaCount       int               `json:"area_count"`    // areas actually included (overlap + data)
	SkippedAreas    int               `json:"skipped_areas"` // areas dropped for malformed geometry
	Contributions   []LADContribution `json:"contributions"` // ordered by weight descending
}
