package calib

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotConverged = errors.New("fit did not converge")
	ErrPersistence  = errors.New("persistence failure")
)

// ConvergenceError reports a fit which stopped without meeting its tolerance.
// Estimate holds the last best parameters found.
type ConvergenceError struct {
	Method     string
	Estimate   []float64
	Iterations int
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: %s after %d iterations (estimate %v): %s", e.Method, ErrNotConverged, e.Iterations, e.Estimate, e.Reason)
}

func (e *ConvergenceError) Unwrap() error { return ErrNotConverged }

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidInput}, args...)...)
}
