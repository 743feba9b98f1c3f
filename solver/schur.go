package solver

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SolveSchur solves the damped normal equations H·Δ = -Jᵀr of a block problem by eliminating
// the per-frame parameters. With a = -Jsᵀr and b_i = -J_iᵀr_i it solves
//
//	S·Δs = a - Σ A12_i A22_i⁻¹ b_i,   S = A11 - Σ A12_i A22_i⁻¹ A12_iᵀ
//
// by Cholesky, then A22_i·Δd_i = b_i - A12_iᵀΔs for each frame. The returned vector is
// [Δs, Δd_0, ..., Δd_{l-1}].
func SolveSchur(jac *BlockJacobian, hess *BlockHessian, r []float64) ([]float64, error) {
	l, m, d, k := jac.Frames(), jac.StaticDim(), jac.DynamicDim(), jac.RowsPerFrame()
	if len(r) != k*l {
		return nil, errors.Errorf("got %d residuals, expected %d", len(r), k*l)
	}
	if len(hess.A12) != l || len(hess.A22) != l || hess.A11.SymmetricDim() != m {
		return nil, errors.New("hessian blocks do not match the jacobian blocks")
	}

	residual := mat.NewVecDense(len(r), r)
	a := mat.NewVecDense(m, nil)
	a.MulVec(jac.Static.T(), residual)
	a.ScaleVec(-1, a)

	schur := mat.NewDense(m, m, nil)
	schur.Copy(hess.A11)
	rhs := mat.VecDenseCopyOf(a)

	factors := make([]mat.Cholesky, l)
	b := make([]*mat.VecDense, l)
	var y mat.Dense
	var z, tmpVec mat.VecDense
	var tmp mat.Dense
	for i := 0; i < l; i++ {
		if ok := factors[i].Factorize(hess.A22[i]); !ok {
			return nil, errors.Wrapf(ErrSingularSystem, "dynamic block of frame %d is not positive definite", i)
		}
		b[i] = mat.NewVecDense(d, nil)
		b[i].MulVec(jac.Dynamic[i].T(), residual.SliceVec(i*k, (i+1)*k))
		b[i].ScaleVec(-1, b[i])

		// y = A22⁻¹ A12ᵀ, z = A22⁻¹ b
		if err := factors[i].SolveTo(&y, hess.A12[i].T()); err != nil {
			return nil, errors.Wrapf(ErrSingularSystem, "frame %d: %v", i, err)
		}
		if err := factors[i].SolveVecTo(&z, b[i]); err != nil {
			return nil, errors.Wrapf(ErrSingularSystem, "frame %d: %v", i, err)
		}
		tmp.Mul(hess.A12[i], &y)
		schur.Sub(schur, &tmp)
		tmpVec.MulVec(hess.A12[i], &z)
		rhs.SubVec(rhs, &tmpVec)
	}

	sym := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			sym.SetSym(i, j, 0.5*(schur.At(i, j)+schur.At(j, i)))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, errors.Wrap(ErrSingularSystem, "schur complement is not positive definite")
	}
	var deltaStatic mat.VecDense
	if err := chol.SolveVecTo(&deltaStatic, rhs); err != nil {
		return nil, errors.Wrap(ErrSingularSystem, err.Error())
	}

	delta := make([]float64, m+d*l)
	copy(delta[:m], deltaStatic.RawVector().Data)
	var bi mat.VecDense
	for i := 0; i < l; i++ {
		bi.MulVec(hess.A12[i].T(), &deltaStatic)
		bi.SubVec(b[i], &bi)
		out := mat.NewVecDense(d, delta[m+i*d:m+(i+1)*d])
		if err := factors[i].SolveVecTo(out, &bi); err != nil {
			return nil, errors.Wrapf(ErrSingularSystem, "frame %d back substitution: %v", i, err)
		}
	}
	return delta, nil
}
