package catchment

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/regioniq/catchment/internal/boundary"
	"github.com/regioniq/catchment/internal/fetch"
	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ErrorKindOther},
		{"plain", errors.New("boom"), ErrorKindOther},
		{"wrapped", eris.Wrap(errors.New("boom"), "calc"), ErrorKindOther},
		{
			"boundary",
			&boundary.LoadError{Level: model.LevelLAD, Err: errors.New("404")},
			ErrorKindBoundary,
		},
		{
			"metric",
			&metrics.FetchError{Level: model.LevelLAD, Year: 2023, Err: errors.New("500")},
			ErrorKindMetric,
		},
		{
			"timeout beats boundary",
			&boundary.LoadError{Level: model.LevelLAD, Err: context.DeadlineExceeded},
			ErrorKindTimeout,
		},
		{
			"timeout beats metric",
			&metrics.FetchError{Level: model.LevelLAD, Year: 2023, Err: &fetch.TimeoutError{URL: "http://x", Err: context.DeadlineExceeded}},
			ErrorKindTimeout,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "unable to load map boundaries", UserMessage(ErrorKindBoundary))
	assert.Equal(t, "unable to load metric data", UserMessage(ErrorKindMetric))
	assert.Equal(t, "the data request timed out", UserMessage(ErrorKindTimeout))
	assert.Equal(t, "the calculation failed", UserMessage(ErrorKindOther))
	assert.NotEmpty(t, UserMessage(ErrorKind("unknown")))
}
