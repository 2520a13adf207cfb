package catchment

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/regioniq/catchment/internal/model"
)

// State is the per-session lifecycle of the draw/calculate interaction.
type State string

const (
	StateIdle        State = "idle"
	StateDrawing     State = "drawing"
	StateCalculating State = "calculating"
	StateResult      State = "result"
	StateError       State = "error"
)

// ErrSuperseded marks a calculation whose result arrived after a newer draw
// started. The result is discarded; the caller should ignore it.
var ErrSuperseded = eris.New("catchment: calculation superseded by a newer draw")

// Session serialises one user's draw/calculate cycle and enforces the
// last-write-wins discipline: only the most recent calculation may publish
// its result, and starting a new draw cancels whatever is still in flight.
type Session struct {
	engine *Engine

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc
	result  *model.GeofenceResult
	lastErr error
}

// NewSession creates an idle session over the engine.
func NewSession(engine *Engine) *Session {
	return &Session{engine: engine, state: StateIdle}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the last successful result, if any. It survives a failed
// recalculation so the UI is not blanked by an error.
func (s *Session) Result() *model.GeofenceResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the failure from the last calculation, if the session is in
// the error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// StartDrawing enters the drawing state. Valid from any state: redrawing
// from result or error needs no explicit clear. Any in-flight calculation is
// cancelled and its eventual result discarded.
func (s *Session) StartDrawing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.state = StateDrawing
}

// Clear returns to idle and discards the current geofence, result, and
// error. Valid from any state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.state = StateIdle
	s.result = nil
	s.lastErr = nil
}

// supersedeLocked bumps the generation and aborts any in-flight fetch.
func (s *Session) supersedeLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Calculate runs the engine for a completed drawn shape. It transitions the
// session to calculating, and on completion to result or error — unless a
// newer draw started meanwhile, in which case the outcome is discarded and
// ErrSuperseded returned.
//
// On a fatal error the previous successful result is retained.
func (s *Session) Calculate(ctx context.Context, fence model.Geofence, level model.Level, year int, scenario model.Scenario) (*model.GeofenceResult, error) {
	s.mu.Lock()
	s.supersedeLocked()
	myGen := s.gen
	calcCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateCalculating
	s.mu.Unlock()

	result, err := s.engine.Calculate(calcCtx, fence, level, year, scenario)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != myGen {
		// A newer draw or clear won the race; this outcome is stale.
		return nil, ErrSuperseded
	}
	// Release the derived context now that the engine is done.
	cancel()
	s.cancel = nil
	if err != nil {
		s.state = StateError
		s.lastErr = err
		return nil, err
	}
	s.state = StateResult
	s.result = result
	s.lastErr = nil
	return result, nil
}
