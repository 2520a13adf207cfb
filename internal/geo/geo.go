// Package geo implements the planar geometry the catchment engine needs:
// a local km projection for WGS84 coordinates, ring areas, bounding boxes,
// convex clipping, triangulation, and circle approximation.
//
// All intersection math runs in a local equirectangular projection centred on
// the geofence, so areas come out directly in km². Degrees of longitude per km
// shrink with latitude; the projection accounts for that instead of treating
// lat/lng degrees as isotropic.
package geo

import "math"

// EarthRadiusKm is the IUGG mean earth radius.
const EarthRadiusKm = 6371.0088

// Point is a point in the local projected plane, in km.
type Point struct {
	X float64
	Y float64
}

// Ring is a closed polygon ring in the projected plane. The closing vertex is
// implicit: the last point connects back to the first.
type Ring []Point

// BBox is a geographic bounding box in lng/lat degrees.
type BBox struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// Intersects reports whether two bounding boxes overlap.
func (b BBox) Intersects(o BBox) bool {
	return b.MinLng <= o.MaxLng && b.MaxLng >= o.MinLng &&
		b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat
}

// Extend grows the box to include the given coordinate.
func (b *BBox) Extend(lng, lat float64) {
	if lng < b.MinLng {
		b.MinLng = lng
	}
	if lng > b.MaxLng {
		b.MaxLng = lng
	}
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
}

// EmptyBBox returns a box that any Extend call will snap to.
func EmptyBBox() BBox {
	return BBox{
		MinLng: math.Inf(1), MinLat: math.Inf(1),
		MaxLng: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// Projection is a local equirectangular projection about a reference
// coordinate. Accurate to well under 1% for shapes up to a few hundred km,
// which covers any plausible catchment.
type Projection struct {
	refLng float64
	refLat float64
	cosLat float64
}

// NewProjection creates a projection centred on the given reference point.
func NewProjection(refLng, refLat float64) Projection {
	return Projection{refLng: refLng, refLat: refLat, cosLat: math.Cos(refLat * math.Pi / 180)}
}

// ToPlane projects a lng/lat coordinate into the local km plane.
func (p Projection) ToPlane(lng, lat float64) Point {
	return Point{
		X: EarthRadiusKm * p.cosLat * (lng - p.refLng) * math.Pi / 180,
		Y: EarthRadiusKm * (lat - p.refLat) * math.Pi / 180,
	}
}

// ToLngLat inverts the projection.
func (p Projection) ToLngLat(pt Point) (lng, lat float64) {
	lng = p.refLng + pt.X/(EarthRadiusKm*p.cosLat)*180/math.Pi
	lat = p.refLat + pt.Y/EarthRadiusKm*180/math.Pi
	return lng, lat
}

// SignedArea returns the shoelace area of the ring: positive for
// counter-clockwise winding, negative for clockwise.
func (r Ring) SignedArea() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return sum / 2
}

// Area returns the absolute ring area in km².
func (r Ring) Area() float64 {
	return math.Abs(r.SignedArea())
}

// EnsureCCW returns the ring in counter-clockwise winding.
func (r Ring) EnsureCCW() Ring {
	if r.SignedArea() >= 0 {
		return r
	}
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// Sanitize removes the explicit closing vertex and consecutive duplicates.
// Returns nil for degenerate rings: fewer than 3 distinct vertices, or no
// enclosed area (repeated or collinear points).
func Sanitize(r Ring) Ring {
	if len(r) == 0 {
		return nil
	}
	out := make(Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && nearlyEqual(out[len(out)-1], p) {
			continue
		}
		out = append(out, p)
	}
	// Drop explicit closure.
	for len(out) > 1 && nearlyEqual(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	if len(out) < 3 || out.Area() < 1e-12 {
		return nil
	}
	return out
}

func nearlyEqual(a, b Point) bool {
	const eps = 1e-12
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
