package catchment

import (
	"errors"

	"github.com/regioniq/catchment/internal/boundary"
	"github.com/regioniq/catchment/internal/fetch"
	"github.com/regioniq/catchment/internal/metrics"
)

// ErrorKind classifies a fatal calculation failure for user messaging: the
// two halves of the pipeline fail distinctly, and a timeout is reported as
// such rather than as a generic load failure.
type ErrorKind string

const (
	ErrorKindBoundary ErrorKind = "boundary_load"
	ErrorKindMetric   ErrorKind = "metric_fetch"
	ErrorKindTimeout  ErrorKind = "timeout"
	ErrorKindOther    ErrorKind = "other"
)

// Classify maps an error chain to its kind. Timeout wins within either
// pipeline half so diagnosis stays possible from the message alone.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindOther
	}
	if fetch.IsTimeout(err) {
		return ErrorKindTimeout
	}
	var be *boundary.LoadError
	if errors.As(err, &be) {
		return ErrorKindBoundary
	}
	var me *metrics.FetchError
	if errors.As(err, &me) {
		return ErrorKindMetric
	}
	return ErrorKindOther
}

// UserMessage renders the short retryable message the UI shows for a kind.
func UserMessage(kind ErrorKind) string {
	switch kind {
	case ErrorKindBoundary:
		return "unable to load map boundaries"
	case ErrorKindMetric:
		return "unable to load metric data"
	case ErrorKindTimeout:
		return "the data request timed out"
	default:
		return "the calculation failed"
	}
}
