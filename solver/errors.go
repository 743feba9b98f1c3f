package solver

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSingularSystem is returned when a damped normal equation system (the dense system, a Schur
// complement, or a per-frame block) cannot be factorized.
var ErrSingularSystem = errors.New("linear system is singular or ill-conditioned")

// ConvergenceError is returned when the damping parameter had to be raised more than the allowed
// number of times without finding a step that does not increase the cost.
type ConvergenceError struct {
	Iteration int
	Retries   int
	Mu        float64
	// Err is the failure of the last rejected attempt, if it was a failed solve rather than a
	// cost increase.
	Err error
}

// NewConvergenceError returns a ConvergenceError for the given iteration state.
func NewConvergenceError(iteration, retries int, mu float64, cause error) *ConvergenceError {
	return &ConvergenceError{Iteration: iteration, Retries: retries, Mu: mu, Err: cause}
}

func (e *ConvergenceError) Error() string {
	msg := fmt.Sprintf("no acceptable step at iteration %d after %d damping increases (mu = %g)", e.Iteration, e.Retries, e.Mu)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the last solve failure, if any.
func (e *ConvergenceError) Unwrap() error {
	return e.Err
}
