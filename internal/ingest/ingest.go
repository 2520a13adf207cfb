// Package ingest loads published metric workbooks and CSV extracts into the
// local observation store. Two layouts are supported: long-format CSV with
// one observation per row, and the wide ONS-style workbook with one region
// per row and one column per year.
package ingest

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/metrics"
)

// Sink receives parsed observations. The SQLite store satisfies it.
type Sink interface {
	InsertObservations(ctx context.Context, obs []metrics.Observation) error
}

// Report summarises one ingestion run.
type Report struct {
	Rows     int // data rows seen
	Inserted int // observations written
	Skipped  int // rows or cells dropped as unparseable
}

// batchSize bounds the observations buffered per insert transaction.
const batchSize = 500

// Ingester parses source files and writes observations to a sink.
type Ingester struct {
	sink      Sink
	catalogue metrics.Catalogue
}

// NewIngester creates an Ingester over the sink and metric catalogue.
func NewIngester(sink Sink, catalogue metrics.Catalogue) *Ingester {
	return &Ingester{sink: sink, catalogue: catalogue}
}

// flush writes a batch and folds it into the report.
func (in *Ingester) flush(ctx context.Context, batch []metrics.Observation, report *Report) error {
	if len(batch) == 0 {
		return nil
	}
	if err := in.sink.InsertObservations(ctx, batch); err != nil {
		return eris.Wrap(err, "ingest: write batch")
	}
	report.Inserted += len(batch)
	return nil
}

// metricForHeader resolves a column header to a catalogue metric ID using the
// catalogue's accepted spellings.
func (in *Ingester) metricForHeader(header string) (string, bool) {
	h := normalizeHeader(header)
	for _, entry := range in.catalogue.Metrics {
		if h == entry.ID {
			return entry.ID, true
		}
		for _, col := range entry.Columns {
			if h == normalizeHeader(col) {
				return entry.ID, true
			}
		}
	}
	return "", false
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseValue parses a numeric cell. Published tables mark suppressed or
// missing cells with symbols rather than leaving them blank.
func parseValue(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "-", "..", ":", "x", "c", "[x]", "[c]":
		return nil, true // legitimately missing
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func parseYear(s string) (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 1800 || y > 2200 {
		return 0, false
	}
	return y, true
}

func logReport(source string, report Report) {
	zap.L().Info("ingest: file complete",
		zap.String("source", source),
		zap.Int("rows", report.Rows),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
	)
}
