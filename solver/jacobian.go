package solver

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// DefaultFiniteDifferenceStep is the forward difference step used when none is configured.
const DefaultFiniteDifferenceStep = 1e-5

// ResidualFunc writes the residual vector at x into dst. It must not modify x and must always
// write the same number of values.
type ResidualFunc func(dst, x []float64)

// NumericalJacobian returns the rows x len(x) forward difference Jacobian of f at x with step
// eps: column j is (f(x + eps·e_j) - f(x)) / eps. It evaluates f len(x)+1 times.
func NumericalJacobian(f ResidualFunc, x []float64, rows int, eps float64) *mat.Dense {
	origin := make([]float64, rows)
	f(origin, x)
	return NumericalJacobianAt(f, x, origin, eps)
}

// NumericalJacobianAt is NumericalJacobian for when f(x) has already been evaluated into origin.
func NumericalJacobianAt(f ResidualFunc, x, origin []float64, eps float64) *mat.Dense {
	if eps <= 0 {
		eps = DefaultFiniteDifferenceStep
	}
	jac := mat.NewDense(len(origin), len(x), nil)
	fd.Jacobian(jac, f, x, &fd.JacobianSettings{
		Formula:     fd.Forward,
		Step:        eps,
		OriginValue: origin,
	})
	return jac
}
