package boundary

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/regioniq/catchment/internal/fetch"
	"github.com/regioniq/catchment/internal/model"
)

// Source provides the raw GeoJSON feature collection for a granularity level.
type Source interface {
	FeatureCollection(ctx context.Context, level model.Level) ([]byte, error)
}

// HTTPSource fetches boundary GeoJSON over HTTP, one URL per level. The ONS
// publishes each level as a separate generalised-boundary file.
type HTTPSource struct {
	urls    map[model.Level]string
	fetcher *fetch.Client
}

// NewHTTPSource creates a source over the given level→URL map.
func NewHTTPSource(urls map[model.Level]string, fetcher *fetch.Client) *HTTPSource {
	if fetcher == nil {
		fetcher = fetch.NewClient(fetch.Options{})
	}
	return &HTTPSource{urls: urls, fetcher: fetcher}
}

// FeatureCollection downloads the GeoJSON payload for the level.
func (s *HTTPSource) FeatureCollection(ctx context.Context, level model.Level) ([]byte, error) {
	url, ok := s.urls[level]
	if !ok {
		return nil, eris.Errorf("boundary: no dataset URL configured for level %s", level)
	}
	body, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: fetch %s boundaries", level)
	}
	return body, nil
}

// FileSource reads boundary GeoJSON from local files, one path per level.
// Used by the CLI and by deployments that bundle converted datasets.
type FileSource struct {
	paths map[model.Level]string
}

// NewFileSource creates a source over the given level→path map.
func NewFileSource(paths map[model.Level]string) *FileSource {
	return &FileSource{paths: paths}
}

// FeatureCollection reads the GeoJSON file for the level.
func (s *FileSource) FeatureCollection(_ context.Context, level model.Level) ([]byte, error) {
	path, ok := s.paths[level]
	if !ok {
		return nil, eris.Errorf("boundary: no dataset path configured for level %s", level)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open %s", path)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: read %s", path)
	}
	return data, nil
}
