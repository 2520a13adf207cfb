// Package boundary loads and caches administrative-area boundary polygons.
//
// Boundary datasets are large but bounded (one file per granularity level)
// and immutable for the process lifetime, so the store caches them forever
// with no eviction. Concurrent first loads of the same level are collapsed
// into one underlying fetch.
package boundary

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/regioniq/catchment/internal/model"
)

// Store is the process-wide boundary cache. Construct one at startup and
// pass it by reference; tests inject a fresh store with a fake source.
type Store struct {
	source      Source
	codeKey     string
	nameKey     string
	loadTimeout time.Duration

	group singleflight.Group
	// Each level is written exactly once, by the flight that loaded it;
	// sync.Map keeps readers lock-free after that.
	cache sync.Map
}

// Option configures a Store.
type Option func(*Store)

// WithPropertyKeys overrides the detected code/name GeoJSON property keys.
func WithPropertyKeys(codeKey, nameKey string) Option {
	return func(s *Store) {
		s.codeKey = codeKey
		s.nameKey = nameKey
	}
}

// WithLoadTimeout bounds a single boundary load. Default 30s.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Store) { s.loadTimeout = d }
}

// NewStore creates a boundary store over the given source.
func NewStore(source Source, opts ...Option) *Store {
	s := &Store{
		source:      source,
		loadTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preload loads the boundary set for a level ahead of need so the first
// calculation is not blocked on a large download and parse. It blocks until
// the load completes; run it in a goroutine to fire and forget. Idempotent:
// a second call while a load is in flight joins it, and a call after
// completion is a cache hit.
func (s *Store) Preload(ctx context.Context, level model.Level) error {
	_, err := s.Areas(ctx, level)
	return err
}

// Areas returns the cached AdministrativeArea set for a level, loading it
// first if needed. Failures surface as *LoadError.
func (s *Store) Areas(ctx context.Context, level model.Level) ([]model.AdministrativeArea, error) {
	if areas, ok := s.cache.Load(string(level)); ok {
		return areas.([]model.AdministrativeArea), nil
	}

	// Single-flight the load. The flight runs on a detached context with its
	// own timeout: the loaded set outlives any one request, so one caller
	// cancelling must not poison the load for the others. A cancelled caller
	// abandons the flight; the flight itself completes and populates the
	// cache.
	ch := s.group.DoChan(string(level), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
		defer cancel()
		return s.load(loadCtx, level)
	})

	select {
	case <-ctx.Done():
		return nil, &LoadError{Level: level, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, &LoadError{Level: level, Err: res.Err}
		}
		return res.Val.([]model.AdministrativeArea), nil
	}
}

func (s *Store) load(ctx context.Context, level model.Level) ([]model.AdministrativeArea, error) {
	start := time.Now()
	data, err := s.source.FeatureCollection(ctx, level)
	if err != nil {
		return nil, err
	}
	areas, err := ParseFeatureCollection(data, level, s.codeKey, s.nameKey)
	if err != nil {
		return nil, err
	}
	s.cache.Store(string(level), areas)
	zap.L().Info("boundary: level loaded",
		zap.String("level", string(level)),
		zap.Int("areas", len(areas)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return areas, nil
}

// Loaded reports whether a level is already cached, without triggering a load.
func (s *Store) Loaded(level model.Level) bool {
	_, ok := s.cache.Load(string(level))
	return ok
}
