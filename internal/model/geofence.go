package model

import "github.com/rotisserie/eris"

// GeofenceKind distinguishes the two drawn-shape variants.
type GeofenceKind string

const (
	GeofenceCircle  GeofenceKind = "circle"
	GeofencePolygon GeofenceKind = "polygon"
)

// Coordinate is a WGS84 lng/lat pair.
type Coordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Geofence is a user-drawn shape: either a circle (centre + radius in km,
// rendered to a polygon approximation before intersection) or one or more
// closed polygon rings. Transient; recreated on every draw.
type Geofence struct {
	Kind     GeofenceKind   `json:"kind"`
	Center   Coordinate     `json:"center,omitempty"`
	RadiusKm float64        `json:"radius_km,omitempty"`
	Rings    [][]Coordinate `json:"rings,omitempty"`
}

// NewCircle builds a circle geofence.
func NewCircle(center Coordinate, radiusKm float64) Geofence {
	return Geofence{Kind: GeofenceCircle, Center: center, RadiusKm: radiusKm}
}

// NewPolygon builds a polygon geofence from one or more closed rings.
// Rings are assumed disjoint; overlap fractions sum across rings.
func NewPolygon(rings ...[]Coordinate) Geofence {
	return Geofence{Kind: GeofencePolygon, Rings: rings}
}

// Validate checks the geofence is structurally usable. A radius-0 circle is
// valid (it yields an empty or negligible result, not an error).
func (g Geofence) Validate() error {
	switch g.Kind {
	case GeofenceCircle:
		if g.RadiusKm < 0 {
			return eris.Errorf("model: circle radius must be >= 0 (got %g)", g.RadiusKm)
		}
		if g.Center.Lat < -90 || g.Center.Lat > 90 {
			return eris.Errorf("model: circle centre latitude out of range (got %g)", g.Center.Lat)
		}
		return nil
	case GeofencePolygon:
		if len(g.Rings) == 0 {
			return eris.New("model: polygon geofence has no rings")
		}
		for i, ring := range g.Rings {
			if len(ring) < 3 {
				return eris.Errorf("model: polygon ring %d has %d points, need at least 3", i, len(ring))
			}
		}
		return nil
	}
	return eris.Errorf("model: unknown geofence kind %q", g.Kind)
}
