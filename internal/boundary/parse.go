package boundary

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/geo"
	"github.com/regioniq/catchment/internal/model"
)

// ParseFeatureCollection decodes boundary GeoJSON into AdministrativeArea
// records. codeKey/nameKey name the feature properties carrying the area code
// and display name; when empty they are detected from the ONS convention of
// property keys ending in "CD" and "NM" (ITL325CD, LAD25NM, ...).
//
// Features with unusable geometry or a missing code are skipped and counted,
// not fatal: one bad feature must not take down the whole level. An entirely
// empty collection is an error, since downstream it would silently produce
// zero-area results.
func ParseFeatureCollection(data []byte, level model.Level, codeKey, nameKey string) ([]model.AdministrativeArea, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "boundary: decode %s GeoJSON", level)
	}
	if len(fc.Features) == 0 {
		return nil, eris.Errorf("boundary: %s feature collection is empty", level)
	}

	areas := make([]model.AdministrativeArea, 0, len(fc.Features))
	var skipped int
	for _, f := range fc.Features {
		mp := toMultiPolygon(f.Geometry)
		if mp == nil || mp.NumPolygons() == 0 {
			skipped++
			continue
		}

		code := propString(f.Properties, codeKey, "CD")
		if code == "" {
			skipped++
			continue
		}
		name := propString(f.Properties, nameKey, "NM")

		bbox := multiPolygonBBox(mp)
		areas = append(areas, model.AdministrativeArea{
			Code:     code,
			Name:     name,
			Level:    level,
			Geometry: mp,
			AreaKm2:  MultiPolygonAreaKm2(mp),
			BBox:     [4]float64{bbox.MinLng, bbox.MinLat, bbox.MaxLng, bbox.MaxLat},
		})
	}

	if skipped > 0 {
		zap.L().Warn("boundary: skipped unusable features",
			zap.String("level", string(level)),
			zap.Int("skipped", skipped),
			zap.Int("loaded", len(areas)),
		)
	}
	if len(areas) == 0 {
		return nil, eris.Errorf("boundary: no usable %s features (skipped %d)", level, skipped)
	}
	return areas, nil
}

// toMultiPolygon normalises a feature geometry to a MultiPolygon. Single
// polygons are wrapped; anything else is rejected.
func toMultiPolygon(g geom.T) *geom.MultiPolygon {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY)
		if err := mp.Push(t); err != nil {
			return nil
		}
		return mp
	default:
		return nil
	}
}

// propString reads a string property by explicit key, falling back to the
// first key with the given suffix.
func propString(props map[string]interface{}, key, suffix string) string {
	if key != "" {
		if s, ok := props[key].(string); ok {
			return s
		}
		return ""
	}
	for k, v := range props {
		if strings.HasSuffix(strings.ToUpper(k), suffix) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// multiPolygonBBox computes the lng/lat bounding box over all rings.
func multiPolygonBBox(mp *geom.MultiPolygon) geo.BBox {
	b := geo.EmptyBBox()
	coords := mp.FlatCoords()
	stride := mp.Stride()
	for i := 0; i+1 < len(coords); i += stride {
		b.Extend(coords[i], coords[i+1])
	}
	return b
}

// MultiPolygonAreaKm2 computes the land area of a lng/lat multi-polygon in
// km²: outer rings minus holes, projected locally about the geometry's
// bounding-box centre.
func MultiPolygonAreaKm2(mp *geom.MultiPolygon) float64 {
	bbox := multiPolygonBBox(mp)
	proj := geo.NewProjection((bbox.MinLng+bbox.MaxLng)/2, (bbox.MinLat+bbox.MaxLat)/2)

	var total float64
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := ProjectRing(poly.LinearRing(j), proj)
			if ring == nil {
				continue
			}
			if j == 0 {
				total += ring.Area()
			} else {
				total -= ring.Area()
			}
		}
	}
	if total < 0 {
		total = 0
	}
	return total
}

// ProjectRing converts a go-geom linear ring into a sanitised planar ring.
func ProjectRing(lr *geom.LinearRing, proj geo.Projection) geo.Ring {
	coords := lr.FlatCoords()
	stride := lr.Stride()
	ring := make(geo.Ring, 0, len(coords)/stride)
	for i := 0; i+1 < len(coords); i += stride {
		ring = append(ring, proj.ToPlane(coords[i], coords[i+1]))
	}
	return geo.Sanitize(ring)
}
