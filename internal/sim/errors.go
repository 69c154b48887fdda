package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates a particle position that is NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrInvalidConfig indicates run parameters the simulator cannot honor.
	ErrInvalidConfig = errors.New("sim: invalid run configuration")

	// ErrContextCanceled indicates the run was interrupted between frames.
	ErrContextCanceled = errors.New("sim: simulation canceled by context")
)

// SimulationError wraps an error with the frame it occurred on.
type SimulationError struct {
	Frame    int
	Time     float64
	Particle int
	Wrapped  error
}

func (e *SimulationError) Error() string {
	if e.Particle >= 0 {
		return fmt.Sprintf("frame %d (t=%.4f) particle %d: %v", e.Frame, e.Time, e.Particle, e.Wrapped)
	}
	return fmt.Sprintf("frame %d (t=%.4f): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
