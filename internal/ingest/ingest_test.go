package ingest

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

type captureSink struct {
	obs []metrics.Observation
	err error
}

func (s *captureSink) InsertObservations(_ context.Context, obs []metrics.Observation) error {
	if s.err != nil {
		return s.err
	}
	s.obs = append(s.obs, obs...)
	return nil
}

func newTestIngester(sink Sink) *Ingester {
	return NewIngester(sink, metrics.DefaultCatalogue())
}

func byKey(obs []metrics.Observation) map[string]metrics.Observation {
	m := make(map[string]metrics.Observation, len(obs))
	for _, o := range obs {
		m[o.RegionCode+"/"+o.MetricID+"/"+strconv.Itoa(o.Period)] = o
	}
	return m
}

func TestIngestCSVLongFormat(t *testing.T) {
	input := strings.Join([]string{
		"region_code,level,metric_id,year,value,ci_lower,ci_upper,data_type",
		"E06000001,LAD,population,2023,92000,,,historical",
		"E06000001,LAD,emp_total,2023,41000,,,historical",
		"E06000001,LAD,population,2030,95000,90000,100000,forecast",
		`E06000002,LAD,population,2023,"148,000",,,historical`,
		"E06000003,LAD,population,2023,..,,,historical", // suppressed cell
		"E06000004,LAD,population,nonsense,1,,,historical",
		"E06000005,LAD,gva_total,2023,5,,,historical", // metric outside the catalogue
	}, "\n")

	sink := &captureSink{}
	report, err := newTestIngester(sink).IngestCSV(context.Background(), strings.NewReader(input), model.LevelLAD)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Rows)
	assert.Equal(t, 4, report.Inserted)
	assert.Equal(t, 3, report.Skipped)
	require.Len(t, sink.obs, 4)

	got := byKey(sink.obs)
	pop := got["E06000001/population/2023"]
	assert.Equal(t, 92000.0, *pop.Value)
	assert.Equal(t, model.LevelLAD, pop.RegionLevel)
	assert.Equal(t, "historical", pop.DataType)

	forecast := got["E06000001/population/2030"]
	assert.Equal(t, "forecast", forecast.DataType)
	assert.Equal(t, 90000.0, *forecast.CILower)
	assert.Equal(t, 100000.0, *forecast.CIUpper)

	assert.Equal(t, 148000.0, *got["E06000002/population/2023"].Value, "thousands separators are stripped")
}

func TestIngestCSVHeaderVariants(t *testing.T) {
	// Alternate ONS-style header spellings resolve to the same columns, and
	// metric columns resolve through the catalogue's accepted names.
	input := strings.Join([]string{
		"geography_code,metric,time_period,obs_value",
		"E06000001,Total Employment,2023,41000",
	}, "\n")

	sink := &captureSink{}
	report, err := newTestIngester(sink).IngestCSV(context.Background(), strings.NewReader(input), model.LevelLAD)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	require.Len(t, sink.obs, 1)
	assert.Equal(t, metrics.MetricEmployment, sink.obs[0].MetricID)
}

func TestIngestCSVMissingColumns(t *testing.T) {
	input := "region_code,value\nE06000001,92000\n"
	_, err := newTestIngester(&captureSink{}).IngestCSV(context.Background(), strings.NewReader(input), model.LevelLAD)
	require.Error(t, err)
}

func writeTestWorkbook(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "metric.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestIngestXLSXWideFormat(t *testing.T) {
	path := writeTestWorkbook(t, "Population", [][]string{
		{"Population estimates", "", "", ""}, // title row above the header
		{"Code", "Name", "2022", "2023"},
		{"E06000001", "Hartlepool", "91000", "92000"},
		{"E06000002", "Middlesbrough", "-", "148000"},
	})

	sink := &captureSink{}
	in := newTestIngester(sink)
	report, err := in.IngestXLSX(context.Background(), path, metrics.MetricPopulation, model.LevelLAD, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 3, report.Inserted)
	assert.Zero(t, report.Skipped)

	got := byKey(sink.obs)
	assert.Equal(t, 91000.0, *got["E06000001/population/2022"].Value)
	assert.Equal(t, 92000.0, *got["E06000001/population/2023"].Value)
	assert.Equal(t, 148000.0, *got["E06000002/population/2023"].Value)
	_, dashPresent := got["E06000002/population/2022"]
	assert.False(t, dashPresent, "suppressed cells are not stored")
}

func TestIngestXLSXErrors(t *testing.T) {
	in := newTestIngester(&captureSink{})
	ctx := context.Background()

	_, err := in.IngestXLSX(ctx, "missing.xlsx", metrics.MetricPopulation, model.LevelLAD, XLSXOptions{})
	require.Error(t, err)

	_, err = in.IngestXLSX(ctx, "whatever.xlsx", "gva_total", model.LevelLAD, XLSXOptions{})
	require.Error(t, err, "metric must be in the catalogue")

	noYears := writeTestWorkbook(t, "Sheet1", [][]string{
		{"Code", "Name"},
		{"E06000001", "Hartlepool"},
	})
	_, err = in.IngestXLSX(ctx, noYears, metrics.MetricPopulation, model.LevelLAD, XLSXOptions{})
	require.Error(t, err)

	noCode := writeTestWorkbook(t, "Sheet1", [][]string{
		{"Area", "2023"},
		{"Hartlepool", "92000"},
	})
	_, err = in.IngestXLSX(ctx, noCode, metrics.MetricPopulation, model.LevelLAD, XLSXOptions{})
	require.Error(t, err)
}
