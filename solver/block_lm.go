package solver

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/rigfit/logging"
)

// BlockProblem is a least squares problem over p = [statics, dynamics_0, ..., dynamics_{l-1}]
// whose residuals split into per-frame groups, each depending only on the statics and its own
// frame's dynamics.
type BlockProblem interface {
	// StaticDim is the number of static parameters m.
	StaticDim() int
	// DynamicDim is the number of parameters per frame d.
	DynamicDim() int
	// Frames is the number of frames l.
	Frames() int
	// ResidualCount is the total residual count.
	ResidualCount() int
	// Residuals writes r(p) into dst.
	Residuals(dst, p []float64)
	// JacobianBlocks evaluates the block Jacobian at p with forward difference step eps.
	JacobianBlocks(ctx context.Context, p []float64, eps float64) (*BlockJacobian, error)
}

// BlockLM minimizes a block problem from p0 with Levenberg-Marquardt, solving every damped step
// with SolveSchur. The initial damping is InitialDampingScale times the largest diagonal element
// of the undamped A11 and A22 blocks at p0. While a step is rejected only the damping changes;
// the Jacobian blocks of the iteration are reused.
func BlockLM(
	ctx context.Context,
	logger logging.Logger,
	problem BlockProblem,
	p0 []float64,
	opts Options,
) (*Solution, error) {
	m, d, l := problem.StaticDim(), problem.DynamicDim(), problem.Frames()
	if len(p0) != m+d*l {
		return nil, errors.Errorf("parameter vector has length %d, expected %d static + %d x %d dynamic", len(p0), m, l, d)
	}
	opts = opts.WithDefaults()
	linearize := func(ctx context.Context, p, r []float64) (*linearization, error) {
		jac, err := problem.JacobianBlocks(ctx, p, opts.FiniteDifferenceStep)
		if err != nil {
			return nil, errors.Wrap(err, "error evaluating jacobian blocks")
		}
		if err := jac.Validate(); err != nil {
			return nil, err
		}
		hess := NewBlockHessian(jac, 0)
		return &linearization{
			maxDiagonal: hess.MaxDiagonal(),
			step: func(mu float64) ([]float64, error) {
				return SolveSchur(jac, hess.Damped(mu), r)
			},
		}, nil
	}
	logger.Debugw("starting block levenberg-marquardt", "static", m, "frames", l, "residuals", problem.ResidualCount())
	return iterate(ctx, logger, "block", problem.ResidualCount(), problem.Residuals, linearize, p0, opts)
}
