// Package solver implements damped Gauss-Newton (Levenberg-Marquardt) least squares solvers: a
// dense variant for small problems and a block variant that eliminates per-frame parameters with
// the Schur complement.
package solver

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/logging"
)

const (
	defaultMaxIterations       = 100
	defaultTolerance           = 1e-6
	defaultMaxDampingRetries   = 60
	defaultInitialDampingScale = 1e-3
)

// Options controls the Levenberg-Marquardt iteration. Zero values are replaced by defaults.
type Options struct {
	// MaxIterations is the number of accepted steps after which the solver gives up. Reaching it is
	// not an error; the returned Solution reports Converged == false.
	MaxIterations int `json:"max_iterations,omitempty"`
	// Tolerance stops the solver once the step norm or the cost improvement falls below it.
	Tolerance float64 `json:"tolerance,omitempty"`
	// FiniteDifferenceStep is the forward difference step of the numerical Jacobian.
	FiniteDifferenceStep float64 `json:"finite_difference_step,omitempty"`
	// MaxDampingRetries bounds how many times the damping is doubled within a single iteration.
	MaxDampingRetries int `json:"max_damping_retries,omitempty"`
	// InitialDampingScale multiplies the largest diagonal element of the first Hessian to get the
	// initial damping.
	InitialDampingScale float64 `json:"initial_damping_scale,omitempty"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        defaultMaxIterations,
		Tolerance:            defaultTolerance,
		FiniteDifferenceStep: DefaultFiniteDifferenceStep,
		MaxDampingRetries:    defaultMaxDampingRetries,
		InitialDampingScale:  defaultInitialDampingScale,
	}
}

// WithDefaults returns a copy of opts with every unset field filled from DefaultOptions.
func (opts Options) WithDefaults() Options {
	def := DefaultOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.FiniteDifferenceStep <= 0 {
		opts.FiniteDifferenceStep = def.FiniteDifferenceStep
	}
	if opts.MaxDampingRetries <= 0 {
		opts.MaxDampingRetries = def.MaxDampingRetries
	}
	if opts.InitialDampingScale <= 0 {
		opts.InitialDampingScale = def.InitialDampingScale
	}
	return opts
}

// IterationInfo describes one accepted step.
type IterationInfo struct {
	Iteration int     `json:"iteration"`
	Cost      float64 `json:"cost"`
	StepNorm  float64 `json:"step_norm"`
	Mu        float64 `json:"mu"`
	Retries   int     `json:"retries"`
}

// Solution is the result of a solve.
type Solution struct {
	X []float64
	// Cost is the sum of squared residuals at X.
	Cost       float64
	Iterations int
	// Converged is false when MaxIterations was reached before a stopping criterion held.
	Converged bool
	History   []IterationInfo
}

// Problem is a dense least squares problem: minimize |r(x)|² over x.
type Problem struct {
	// Size is the number of residuals.
	Size      int
	Residuals ResidualFunc
}

// Cost returns the sum of squared residuals.
func Cost(r []float64) float64 {
	return floats.Dot(r, r)
}

// LevenbergMarquardt minimizes the problem starting at x0. Each iteration linearizes at the current
// point with a forward difference Jacobian J, solves (JᵀJ + μI)Δ = -Jᵀr, and doubles μ until the
// step does not increase the cost; accepted steps divide μ by 3.
func LevenbergMarquardt(
	ctx context.Context,
	logger logging.Logger,
	problem Problem,
	x0 []float64,
	opts Options,
) (*Solution, error) {
	if problem.Residuals == nil {
		return nil, errors.New("problem has no residual function")
	}
	if problem.Size <= 0 || len(x0) == 0 {
		return nil, errors.Errorf("problem must have residuals and parameters, got %d residuals and %d parameters", problem.Size, len(x0))
	}
	opts = opts.WithDefaults()
	n := len(x0)
	linearize := func(_ context.Context, x, r []float64) (*linearization, error) {
		jac := NumericalJacobianAt(problem.Residuals, x, r, opts.FiniteDifferenceStep)
		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		grad := mat.NewVecDense(n, nil)
		grad.MulVec(jac.T(), mat.NewVecDense(len(r), r))
		grad.ScaleVec(-1, grad)
		return &linearization{
			maxDiagonal: maxSymDiagonal(&jtj),
			step: func(mu float64) ([]float64, error) {
				return solveDamped(&jtj, grad, mu)
			},
		}, nil
	}
	return iterate(ctx, logger, "dense", problem.Size, problem.Residuals, linearize, x0, opts)
}

// linearization is the normal equation system at one point. step solves it for a given damping.
type linearization struct {
	maxDiagonal float64
	step        func(mu float64) ([]float64, error)
}

type linearizeFunc func(ctx context.Context, x, r []float64) (*linearization, error)

// iterate runs the damping schedule shared by the dense and block solvers.
func iterate(
	ctx context.Context,
	logger logging.Logger,
	name string,
	residualCount int,
	residuals ResidualFunc,
	linearize linearizeFunc,
	x0 []float64,
	opts Options,
) (*Solution, error) {
	x := make([]float64, len(x0))
	copy(x, x0)
	r := make([]float64, residualCount)
	trialR := make([]float64, residualCount)
	trial := make([]float64, len(x0))

	residuals(r, x)
	cost := Cost(r)
	solution := &Solution{}
	mu := -1.0

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "%s solver interrupted at iteration %d", name, iter)
		}
		lin, err := linearize(ctx, x, r)
		if err != nil {
			return nil, err
		}
		if mu < 0 {
			mu = opts.InitialDampingScale * lin.maxDiagonal
			if !(mu > 0) {
				// a flat start still needs a positive definite system
				mu = opts.InitialDampingScale
			}
		}

		var delta []float64
		var newCost float64
		retries := 0
		for {
			step, err := lin.step(mu)
			var cause error
			switch {
			case err == nil:
				floats.AddTo(trial, x, step)
				residuals(trialR, trial)
				newCost = Cost(trialR)
				// a NaN cost never compares as acceptable
				if newCost <= cost {
					delta = step
				}
			case errors.Is(err, ErrSingularSystem):
				cause = err
			default:
				return nil, err
			}
			if delta != nil {
				break
			}
			if retries >= opts.MaxDampingRetries {
				return nil, NewConvergenceError(iter, retries, mu, cause)
			}
			retries++
			mu *= 2
		}

		stepNorm := floats.Norm(delta, 2)
		improvement := cost - newCost
		solution.History = append(solution.History, IterationInfo{
			Iteration: iter,
			Cost:      cost,
			StepNorm:  stepNorm,
			Mu:        mu,
			Retries:   retries,
		})
		logger.Debugw("levenberg-marquardt step", "solver", name, "iteration", iter,
			"cost", cost, "step_norm", stepNorm, "mu", mu, "retries", retries)

		copy(x, trial)
		copy(r, trialR)
		cost = newCost
		mu /= 3
		solution.Iterations = iter

		if stepNorm < opts.Tolerance || improvement < opts.Tolerance {
			solution.Converged = true
			break
		}
	}

	if !solution.Converged {
		logger.Warnw("levenberg-marquardt reached the iteration limit", "solver", name,
			"iterations", solution.Iterations, "cost", cost)
	}
	solution.X = x
	solution.Cost = cost
	return solution, nil
}

// solveDamped solves (A + μI)x = b by Cholesky factorization.
func solveDamped(a *mat.SymDense, b *mat.VecDense, mu float64) ([]float64, error) {
	n := a.SymmetricDim()
	damped := mat.NewSymDense(n, nil)
	damped.CopySym(a)
	addDiagonal(damped, mu)
	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return nil, errors.Wrapf(ErrSingularSystem, "damped %dx%d system with mu = %g is not positive definite", n, n, mu)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		return nil, errors.Wrap(ErrSingularSystem, err.Error())
	}
	return x.RawVector().Data, nil
}

func addDiagonal(a *mat.SymDense, mu float64) {
	for i := 0; i < a.SymmetricDim(); i++ {
		a.SetSym(i, i, a.At(i, i)+mu)
	}
}

func maxSymDiagonal(a *mat.SymDense) float64 {
	worst := math.Inf(-1)
	for i := 0; i < a.SymmetricDim(); i++ {
		worst = math.Max(worst, a.At(i, i))
	}
	return worst
}
