package ingest

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

// long-format column names, matched case-insensitively.
var longColumns = map[string][]string{
	"region_code": {"region_code", "code", "area_code", "geography_code"},
	"level":       {"region_level", "level", "geography"},
	"metric":      {"metric_id", "metric"},
	"period":      {"period", "year", "time_period"},
	"value":       {"value", "obs_value"},
	"ci_lower":    {"ci_lower", "lower"},
	"ci_upper":    {"ci_upper", "upper"},
	"data_type":   {"data_type", "type"},
}

// IngestCSV reads a long-format extract: one observation per row, with a
// header naming at least region_code, metric_id, period, and value. The
// level argument is the default when the file carries no level column.
func (in *Ingester) IngestCSV(ctx context.Context, r io.Reader, level model.Level) (Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Report{}, eris.Wrap(err, "ingest: read CSV header")
	}
	cols := mapColumns(header)
	for _, required := range []string{"region_code", "metric", "period", "value"} {
		if _, ok := cols[required]; !ok {
			return Report{}, eris.Errorf("ingest: CSV header missing a %s column", required)
		}
	}

	var (
		report Report
		batch  []metrics.Observation
	)
	for {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "ingest: cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return report, eris.Wrap(err, "ingest: read CSV row")
		}
		report.Rows++

		obs, ok := in.longRow(row, cols, level)
		if !ok {
			report.Skipped++
			continue
		}
		batch = append(batch, obs)
		if len(batch) >= batchSize {
			if err := in.flush(ctx, batch, &report); err != nil {
				return report, err
			}
			batch = batch[:0]
		}
	}
	if err := in.flush(ctx, batch, &report); err != nil {
		return report, err
	}
	logReport("csv", report)
	return report, nil
}

func (in *Ingester) longRow(row []string, cols map[string]int, level model.Level) (metrics.Observation, bool) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	code := cell("region_code")
	metricID, metricOK := in.metricForHeader(cell("metric"))
	year, yearOK := parseYear(cell("period"))
	value, valueOK := parseValue(cell("value"))
	if code == "" || !metricOK || !yearOK || !valueOK || value == nil {
		return metrics.Observation{}, false
	}

	obs := metrics.Observation{
		RegionCode:  code,
		RegionLevel: level,
		MetricID:    metricID,
		Period:      year,
		Value:       value,
		DataType:    "historical",
	}
	if l, err := model.ParseLevel(cell("level")); err == nil {
		obs.RegionLevel = l
	}
	if v, ok := parseValue(cell("ci_lower")); ok {
		obs.CILower = v
	}
	if v, ok := parseValue(cell("ci_upper")); ok {
		obs.CIUpper = v
	}
	if dt := normalizeHeader(cell("data_type")); dt == "forecast" {
		obs.DataType = "forecast"
	}
	return obs, true
}

// mapColumns resolves header names to indices via the accepted spellings.
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		name := normalizeHeader(h)
		for canonical, variants := range longColumns {
			if _, taken := cols[canonical]; taken {
				continue
			}
			for _, v := range variants {
				if name == v {
					cols[canonical] = i
					break
				}
			}
		}
	}
	return cols
}
