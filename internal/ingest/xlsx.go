package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

// XLSXOptions configures the workbook parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // rows above the header to discard
}

// IngestXLSX reads the wide ONS workbook layout for one metric: a header row
// with a region-code column and one column per year, then one region per
// row. All parsed values are historical observations for the given level.
func (in *Ingester) IngestXLSX(ctx context.Context, path, metricID string, level model.Level, opts XLSXOptions) (Report, error) {
	if _, ok := in.catalogue.Lookup(metricID); !ok {
		return Report{}, eris.Errorf("ingest: metric %s not in catalogue", metricID)
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Report{}, eris.Wrapf(err, "ingest: open workbook %s", path)
	}
	sheet, err := pickSheet(f, opts)
	if err != nil {
		return Report{}, err
	}
	if len(sheet.Rows) <= opts.SkipRows {
		return Report{}, eris.Errorf("ingest: sheet %s has no data rows", sheet.Name)
	}

	header := rowStrings(sheet.Rows[opts.SkipRows])
	codeCol, yearCols, err := wideHeader(header)
	if err != nil {
		return Report{}, err
	}

	var (
		report Report
		batch  []metrics.Observation
	)
	for _, row := range sheet.Rows[opts.SkipRows+1:] {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "ingest: cancelled")
		}
		cells := rowStrings(row)
		if codeCol >= len(cells) {
			continue
		}
		code := cells[codeCol]
		if code == "" {
			continue
		}
		report.Rows++

		for col, year := range yearCols {
			if col >= len(cells) {
				continue
			}
			value, ok := parseValue(cells[col])
			if !ok {
				report.Skipped++
				continue
			}
			if value == nil {
				continue
			}
			batch = append(batch, metrics.Observation{
				RegionCode:  code,
				RegionLevel: level,
				MetricID:    metricID,
				Period:      year,
				Value:       value,
				DataType:    "historical",
			})
			if len(batch) >= batchSize {
				if err := in.flush(ctx, batch, &report); err != nil {
					return report, err
				}
				batch = batch[:0]
			}
		}
	}
	if err := in.flush(ctx, batch, &report); err != nil {
		return report, err
	}
	logReport(path, report)
	return report, nil
}

// wideHeader locates the region-code column and every year column.
func wideHeader(header []string) (codeCol int, yearCols map[int]int, err error) {
	codeCol = -1
	yearCols = make(map[int]int)
	for i, h := range header {
		name := normalizeHeader(h)
		switch name {
		case "code", "region_code", "area_code", "geography_code", "lad code", "itl code":
			if codeCol == -1 {
				codeCol = i
			}
			continue
		}
		if y, ok := parseYear(h); ok {
			yearCols[i] = y
		}
	}
	if codeCol == -1 {
		return 0, nil, eris.New("ingest: workbook header has no region-code column")
	}
	if len(yearCols) == 0 {
		return 0, nil, eris.New("ingest: workbook header has no year columns")
	}
	return codeCol, yearCols, nil
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (%d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}
