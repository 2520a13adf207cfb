package boundary

import (
	"fmt"

	"github.com/regioniq/catchment/internal/model"
)

// LoadError reports that a boundary dataset could not be fetched or parsed.
// It is fatal to the calculation that needed it: an empty boundary set would
// silently produce zero-area results, so the failure must reach the caller.
type LoadError struct {
	Level model.Level
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("boundary: load %s: %v", e.Level, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
