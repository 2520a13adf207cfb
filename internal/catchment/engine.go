// Package catchment is the aggregation engine: it combines geometric overlap
// fractions with per-area metric values into area-weighted catchment totals.
//
// The weighting assumes metrics are spatially uniform within each
// administrative area. That is a stated modelling simplification of the
// product, not a bug; do not replace it with population-weighted
// disaggregation without a product decision, since it changes user-visible
// numbers.
package catchment

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/regioniq/catchment/internal/boundary"
	"github.com/regioniq/catchment/internal/intersect"
	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

// Engine performs catchment calculations against a boundary store and a
// metric source. Safe for concurrent use.
type Engine struct {
	boundaries *boundary.Store
	source     metrics.Source
}

// NewEngine creates an Engine.
func NewEngine(boundaries *boundary.Store, source metrics.Source) *Engine {
	return &Engine{boundaries: boundaries, source: source}
}

// Preload warms the boundary cache for a level.
func (e *Engine) Preload(ctx context.Context, level model.Level) error {
	return e.boundaries.Preload(ctx, level)
}

// Calculate runs one catchment calculation: geometric intersection and the
// metric snapshot fetch fan out concurrently, then the results combine into
// a GeofenceResult.
//
// Within the geometry arm the boundary load (if any) completes before the
// intersection starts; the metric fetch proceeds independently. Areas whose
// metrics are entirely missing for the year are excluded from the result,
// not treated as zero: AreaCount reflects only areas actually included.
func (e *Engine) Calculate(ctx context.Context, fence model.Geofence, level model.Level, year int, scenario model.Scenario) (*model.GeofenceResult, error) {
	if err := fence.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	var (
		areas    []model.AdministrativeArea
		overlaps intersect.Result
		snapshot metrics.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		areas, err = e.boundaries.Areas(gctx, level)
		if err != nil {
			return err
		}
		overlaps, err = intersect.Intersect(fence, areas)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = e.source.Snapshot(gctx, level, year, scenario)
		if err != nil {
			if _, ok := err.(*metrics.FetchError); !ok {
				err = &metrics.FetchError{Level: level, Year: year, Scenario: scenario, Err: err}
			}
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCode := make(map[string]*model.AdministrativeArea, len(areas))
	for i := range areas {
		byCode[areas[i].Code] = &areas[i]
	}

	result := &model.GeofenceResult{
		Year:         year,
		Scenario:     scenario,
		Level:        level,
		SkippedAreas: overlaps.Skipped,
	}

	// Overlaps arrive ordered by fraction descending; that order carries
	// straight through to the contribution list.
	for _, ov := range overlaps.Overlaps {
		area, ok := byCode[ov.AreaCode]
		if !ok {
			continue
		}
		values, ok := snapshot[ov.AreaCode]
		if !ok || values.Empty() {
			continue // data gap: excluded, not zeroed
		}

		contrib := model.LADContribution{
			Code:            area.Code,
			Name:            area.Name,
			Weight:          ov.OverlapFraction,
			IntersectionKm2: ov.IntersectionKm2,
			// The intersector measures both areas in the fence projection,
			// so Weight stays the exact ratio of the two reported figures.
			TotalKm2: ov.TotalKm2,
		}
		if values.Population != nil {
			contrib.Population = *values.Population * ov.OverlapFraction
		}
		if values.Employment != nil {
			contrib.Employment = *values.Employment * ov.OverlapFraction
		}
		if values.GDHI != nil {
			contrib.GDHI = *values.GDHI * ov.OverlapFraction
		}

		result.TotalPopulation += contrib.Population
		result.TotalEmployment += contrib.Employment
		result.TotalGDHI += contrib.GDHI
		result.Contributions = append(result.Contributions, contrib)
	}
	result.AreaCount = len(result.Contributions)

	zap.L().Info("catchment: calculation complete",
		zap.String("level", string(level)),
		zap.Int("year", year),
		zap.String("scenario", string(scenario)),
		zap.Int("areas", result.AreaCount),
		zap.Int("skipped", result.SkippedAreas),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
