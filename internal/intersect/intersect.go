// Package intersect computes which administrative areas a geofence overlaps
// and by what fraction of each area's land.
package intersect

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/geo"
	"github.com/regioniq/catchment/internal/model"
)

// Overlap is one area's geometric overlap with the geofence. Both areas are
// measured in the fence projection, so OverlapFraction is exactly their
// ratio (before clamping).
type Overlap struct {
	AreaCode        string
	OverlapFraction float64 // IntersectionKm2 / TotalKm2, clamped to [0,1]
	IntersectionKm2 float64
	TotalKm2        float64
}

// Result carries the per-area overlaps plus a count of areas whose geometry
// could not be intersected and had to be skipped.
type Result struct {
	Overlaps []Overlap // ordered by fraction descending
	Skipped  int
}

// minIntersectionKm2 is the floor below which an intersection is treated as
// numeric noise and the area excluded from the result.
const minIntersectionKm2 = 1e-9

// Intersect computes overlap fractions for every area whose geometry
// intersects the geofence. Areas with zero intersection are excluded, not
// returned with zero weight. A geofence touching no areas yields an empty
// result, not an error.
//
// Per-area geometry failures are absorbed: the area is skipped and counted
// so the caller can surface "N areas skipped" instead of aborting the whole
// calculation.
func Intersect(fence model.Geofence, areas []model.AdministrativeArea) (Result, error) {
	if err := fence.Validate(); err != nil {
		return Result{}, err
	}

	rings := fenceRings(fence)
	if len(rings) == 0 {
		// A radius-0 circle or fully degenerate polygon covers nothing.
		return Result{}, nil
	}

	// Project everything about the geofence bbox centre.
	fenceBBox := ringsBBox(rings)
	proj := geo.NewProjection(
		(fenceBBox.MinLng+fenceBBox.MaxLng)/2,
		(fenceBBox.MinLat+fenceBBox.MaxLat)/2,
	)

	// Triangulate the geofence once; triangles partition the fence, so
	// per-triangle clip areas are additive and the convex-only clipper
	// handles arbitrary drawn shapes.
	var triangles []geo.Ring
	for _, ring := range rings {
		planar := make(geo.Ring, 0, len(ring))
		for _, c := range ring {
			planar = append(planar, proj.ToPlane(c[0], c[1]))
		}
		tris := geo.Triangulate(planar)
		triangles = append(triangles, tris...)
	}
	if len(triangles) == 0 {
		return Result{}, eris.New("intersect: geofence has no usable area")
	}

	var res Result
	for i := range areas {
		area := &areas[i]

		// Cheap bbox prefilter before the precise clip.
		areaBBox := geo.BBox{
			MinLng: area.BBox[0], MinLat: area.BBox[1],
			MaxLng: area.BBox[2], MaxLat: area.BBox[3],
		}
		if !areaBBox.Intersects(fenceBBox) {
			continue
		}

		interKm2, totalKm2, err := areaIntersection(area, triangles, proj)
		if err != nil {
			res.Skipped++
			zap.L().Debug("intersect: skipping area with unusable geometry",
				zap.String("code", area.Code),
				zap.Error(err),
			)
			continue
		}
		if interKm2 < minIntersectionKm2 {
			continue
		}

		// The fraction divides two areas computed in the same projection, so
		// the projection's scale error cancels. The clamp absorbs the
		// remaining floating-point and clipping noise.
		fraction := 0.0
		if totalKm2 > 0 {
			fraction = interKm2 / totalKm2
		}
		if fraction > 1 {
			fraction = 1
		}
		if fraction < 0 {
			fraction = 0
		}

		res.Overlaps = append(res.Overlaps, Overlap{
			AreaCode:        area.Code,
			OverlapFraction: fraction,
			IntersectionKm2: interKm2,
			TotalKm2:        totalKm2,
		})
	}

	sort.SliceStable(res.Overlaps, func(i, j int) bool {
		return res.Overlaps[i].OverlapFraction > res.Overlaps[j].OverlapFraction
	})
	return res, nil
}

// areaIntersection computes both the intersection area between one area's
// multi-polygon and the triangulated geofence, and the area's full land area,
// in the same projection so the fraction is scale-consistent. Disconnected
// parts (islands) contribute additively; holes subtract from both figures.
func areaIntersection(area *model.AdministrativeArea, triangles []geo.Ring, proj geo.Projection) (inter, total float64, err error) {
	mp := area.Geometry
	if mp == nil || mp.NumPolygons() == 0 {
		return 0, 0, eris.Errorf("intersect: area %s has no geometry", area.Code)
	}

	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			lr := poly.LinearRing(j)
			coords := lr.FlatCoords()
			stride := lr.Stride()
			ring := make(geo.Ring, 0, len(coords)/stride)
			for k := 0; k+1 < len(coords); k += stride {
				ring = append(ring, proj.ToPlane(coords[k], coords[k+1]))
			}
			ring = geo.Sanitize(ring)
			if ring == nil {
				if j == 0 {
					return 0, 0, eris.Errorf("intersect: area %s polygon %d outer ring degenerate", area.Code, i)
				}
				continue // degenerate hole: ignore
			}
			ring = ring.EnsureCCW()

			var clippedArea float64
			for _, tri := range triangles {
				if clipped := geo.ClipToConvex(ring, tri); clipped != nil {
					clippedArea += clipped.Area()
				}
			}
			if j == 0 {
				inter += clippedArea
				total += ring.Area()
			} else {
				inter -= clippedArea
				total -= ring.Area()
			}
		}
	}
	if inter < 0 {
		inter = 0
	}
	if total < 0 {
		total = 0
	}
	return inter, total, nil
}

// fenceRings renders the geofence into lng/lat rings: the circle as a 64-gon
// with a latitude-corrected longitude scale, polygons as drawn.
func fenceRings(fence model.Geofence) [][][2]float64 {
	switch fence.Kind {
	case model.GeofenceCircle:
		if fence.RadiusKm <= 0 {
			return nil
		}
		ring := geo.CircleRing(fence.Center.Lng, fence.Center.Lat, fence.RadiusKm, geo.CircleSegments)
		return [][][2]float64{ring}
	case model.GeofencePolygon:
		rings := make([][][2]float64, 0, len(fence.Rings))
		for _, r := range fence.Rings {
			ring := make([][2]float64, 0, len(r))
			for _, c := range r {
				ring = append(ring, [2]float64{c.Lng, c.Lat})
			}
			rings = append(rings, ring)
		}
		return rings
	}
	return nil
}

func ringsBBox(rings [][][2]float64) geo.BBox {
	b := geo.EmptyBBox()
	for _, ring := range rings {
		for _, c := range ring {
			b.Extend(c[0], c[1])
		}
	}
	return b
}
