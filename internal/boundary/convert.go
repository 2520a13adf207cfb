package boundary

import (
	"encoding/json"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/geo"
)

// ConvertOptions configures shapefile conversion.
type ConvertOptions struct {
	// CodeField / NameField name the DBF attributes carrying the area code
	// and display name. Empty means detect by the ONS CD/NM suffix.
	CodeField string
	NameField string

	// SimplifyTolerance is the Douglas-Peucker tolerance in degrees applied
	// after reprojection. Zero means DefaultSimplifyTolerance; negative
	// disables simplification.
	SimplifyTolerance float64
}

// DefaultSimplifyTolerance trims generalised ONS boundaries to roughly 20 m
// of detail, plenty for catchment work and a fraction of the download size.
const DefaultSimplifyTolerance = 0.0002

// ConvertShapefile reads an ONS boundary shapefile (.shp or a zip archive
// holding one) and returns a WGS84 GeoJSON feature collection. National Grid
// coordinates are detected and reprojected; records without usable geometry
// or a code attribute are skipped and counted.
func ConvertShapefile(path string, opts ConvertOptions) ([]byte, error) {
	var (
		reader shp.SequentialReader
		err    error
	)
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		reader, err = shp.OpenZip(path)
	} else {
		reader, err = shp.Open(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	codeIdx, nameIdx := attributeIndexes(reader.Fields(), opts.CodeField, opts.NameField)
	if codeIdx < 0 {
		return nil, eris.Errorf("boundary: %s has no code attribute", path)
	}

	tolerance := opts.SimplifyTolerance
	if tolerance == 0 {
		tolerance = DefaultSimplifyTolerance
	}

	fc := &geojson.FeatureCollection{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		code := attribute(reader, codeIdx)
		if code == "" {
			skipped++
			continue
		}

		mp := shapeToMultiPolygon(poly, tolerance)
		if mp == nil || mp.NumPolygons() == 0 {
			skipped++
			continue
		}

		props := map[string]interface{}{codeKeyName(reader.Fields(), codeIdx): code}
		if nameIdx >= 0 {
			props[codeKeyName(reader.Fields(), nameIdx)] = attribute(reader, nameIdx)
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: mp, Properties: props})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "boundary: read shapefile %s", path)
	}
	if len(fc.Features) == 0 {
		return nil, eris.Errorf("boundary: no usable polygons in %s (skipped %d)", path, skipped)
	}
	if skipped > 0 {
		zap.L().Warn("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
			zap.Int("converted", len(fc.Features)),
		)
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: encode GeoJSON")
	}
	return data, nil
}

// shapeToMultiPolygon converts a shapefile polygon record. Shapefile rings
// wind clockwise for outers and counter-clockwise for holes; each outer
// starts a new polygon and holes attach to the most recent outer. National
// Grid coordinates are reprojected per vertex.
func shapeToMultiPolygon(p *shp.Polygon, tolerance float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)

	var current *geom.Polygon
	flushCurrent := func() {
		if current != nil && current.NumLinearRings() > 0 {
			if err := mp.Push(current); err != nil {
				zap.L().Debug("boundary: dropping malformed polygon part", zap.Error(err))
			}
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		ring := make([][2]float64, 0, end-start)
		for j := start; j < end; j++ {
			lng, lat := p.Points[j].X, p.Points[j].Y
			if isNationalGrid(lng, lat) {
				lng, lat = OSGB36ToWGS84(lng, lat)
			}
			ring = append(ring, [2]float64{lng, lat})
		}
		if tolerance > 0 {
			ring = geo.SimplifyRing(ring, tolerance)
		}
		if len(ring) < 4 {
			continue
		}

		flat := make([]float64, 0, len(ring)*2)
		for _, c := range ring {
			flat = append(flat, c[0], c[1])
		}
		lr := geom.NewLinearRingFlat(geom.XY, flat)

		if ringIsClockwise(ring) || current == nil {
			flushCurrent()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(lr); err != nil {
			zap.L().Debug("boundary: dropping malformed ring", zap.Error(err))
		}
	}
	flushCurrent()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// isNationalGrid detects easting/northing coordinates: nothing in lng/lat
// space sits outside [-180, 180].
func isNationalGrid(x, y float64) bool {
	return x > 180 || x < -180 || y > 90 || y < -90
}

// ringIsClockwise reports shapefile outer-ring winding, evaluated on the raw
// coordinates via the shoelace sum.
func ringIsClockwise(ring [][2]float64) bool {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += (ring[i+1][0] - ring[i][0]) * (ring[i+1][1] + ring[i][1])
	}
	return sum > 0
}

// attributeIndexes resolves the code/name DBF field indexes, by explicit name
// or by the ONS CD/NM suffix convention.
func attributeIndexes(fields []shp.Field, codeField, nameField string) (codeIdx, nameIdx int) {
	codeIdx, nameIdx = -1, -1
	for i, f := range fields {
		name := fieldName(f)
		switch {
		case codeField != "" && strings.EqualFold(name, codeField):
			codeIdx = i
		case nameField != "" && strings.EqualFold(name, nameField):
			nameIdx = i
		case codeField == "" && codeIdx < 0 && strings.HasSuffix(strings.ToUpper(name), "CD"):
			codeIdx = i
		case nameField == "" && nameIdx < 0 && strings.HasSuffix(strings.ToUpper(name), "NM"):
			nameIdx = i
		}
	}
	return codeIdx, nameIdx
}

func codeKeyName(fields []shp.Field, idx int) string {
	return fieldName(fields[idx])
}

func fieldName(f shp.Field) string {
	return strings.TrimRight(f.String(), "\x00")
}

func attribute(r shp.SequentialReader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}
