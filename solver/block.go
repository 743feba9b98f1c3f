package solver

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// BlockJacobian is the Jacobian of a problem whose parameters split into a static part shared by
// all frames and a dynamic part private to each frame. The rows of frame i are
// [i·k, (i+1)·k) where k is the row count of Dynamic[i]; the dynamic block of frame i only
// touches those rows.
type BlockJacobian struct {
	// Static is (k·l)xm.
	Static *mat.Dense
	// Dynamic holds one kxd block per frame.
	Dynamic []*mat.Dense
}

// Validate checks that the block shapes are consistent.
func (j *BlockJacobian) Validate() error {
	if j.Static == nil {
		return errors.New("block jacobian has no static block")
	}
	if len(j.Dynamic) == 0 {
		return errors.New("block jacobian has no frames")
	}
	k, d := j.Dynamic[0].Dims()
	rows, _ := j.Static.Dims()
	if rows != k*len(j.Dynamic) {
		return errors.Errorf("static block has %d rows, expected %d frames of %d rows", rows, len(j.Dynamic), k)
	}
	for i, block := range j.Dynamic {
		if r, c := block.Dims(); r != k || c != d {
			return errors.Errorf("dynamic block %d is %dx%d, expected %dx%d", i, r, c, k, d)
		}
	}
	return nil
}

// Frames returns the number of frames l.
func (j *BlockJacobian) Frames() int {
	return len(j.Dynamic)
}

// StaticDim returns m.
func (j *BlockJacobian) StaticDim() int {
	_, m := j.Static.Dims()
	return m
}

// DynamicDim returns the per-frame parameter count d.
func (j *BlockJacobian) DynamicDim() int {
	_, d := j.Dynamic[0].Dims()
	return d
}

// RowsPerFrame returns k.
func (j *BlockJacobian) RowsPerFrame() int {
	k, _ := j.Dynamic[0].Dims()
	return k
}

// StaticRows returns the kxm view of the static block belonging to frame i.
func (j *BlockJacobian) StaticRows(i int) mat.Matrix {
	k := j.RowsPerFrame()
	return j.Static.Slice(i*k, (i+1)*k, 0, j.StaticDim())
}

// Dense materializes the full (k·l)x(m+d·l) Jacobian.
func (j *BlockJacobian) Dense() *mat.Dense {
	l, m, d, k := j.Frames(), j.StaticDim(), j.DynamicDim(), j.RowsPerFrame()
	out := mat.NewDense(k*l, m+d*l, nil)
	out.Slice(0, k*l, 0, m).(*mat.Dense).Copy(j.Static)
	for i, block := range j.Dynamic {
		out.Slice(i*k, (i+1)*k, m+i*d, m+(i+1)*d).(*mat.Dense).Copy(block)
	}
	return out
}

// BlockHessian is the Gauss-Newton approximation JᵀJ (+ μI) in block form. A12 is logically
// m x (d·l) and stored per frame; A22 is block diagonal. Memory grows linearly with the frame count.
type BlockHessian struct {
	A11 *mat.SymDense
	A12 []*mat.Dense
	A22 []*mat.SymDense
	// Mu is the damping already added to the diagonals of A11 and A22.
	Mu float64
}

// NewBlockHessian builds the damped block Hessian of jac. A zero mu gives the undamped Hessian.
func NewBlockHessian(jac *BlockJacobian, mu float64) *BlockHessian {
	m := jac.StaticDim()
	h := &BlockHessian{
		A11: mat.NewSymDense(m, nil),
		A12: make([]*mat.Dense, jac.Frames()),
		A22: make([]*mat.SymDense, jac.Frames()),
	}
	h.A11.SymOuterK(1, jac.Static.T())
	for i, dyn := range jac.Dynamic {
		a12 := &mat.Dense{}
		a12.Mul(jac.StaticRows(i).T(), dyn)
		h.A12[i] = a12
		a22 := &mat.SymDense{}
		a22.SymOuterK(1, dyn.T())
		h.A22[i] = a22
	}
	return h.Damped(mu)
}

// Damped returns a Hessian whose diagonal damping is mu instead of h.Mu. The off-diagonal blocks
// are shared with h.
func (h *BlockHessian) Damped(mu float64) *BlockHessian {
	if mu == h.Mu {
		return h
	}
	shift := mu - h.Mu
	out := &BlockHessian{
		A11: mat.NewSymDense(h.A11.SymmetricDim(), nil),
		A12: h.A12,
		A22: make([]*mat.SymDense, len(h.A22)),
		Mu:  mu,
	}
	out.A11.CopySym(h.A11)
	addDiagonal(out.A11, shift)
	for i, a22 := range h.A22 {
		out.A22[i] = mat.NewSymDense(a22.SymmetricDim(), nil)
		out.A22[i].CopySym(a22)
		addDiagonal(out.A22[i], shift)
	}
	return out
}

// MaxDiagonal returns the largest diagonal element over A11 and every A22 block.
func (h *BlockHessian) MaxDiagonal() float64 {
	worst := maxSymDiagonal(h.A11)
	for _, a22 := range h.A22 {
		worst = math.Max(worst, maxSymDiagonal(a22))
	}
	return worst
}

// Dense materializes the full (m+d·l)x(m+d·l) symmetric matrix.
func (h *BlockHessian) Dense() *mat.SymDense {
	m := h.A11.SymmetricDim()
	d := 0
	if len(h.A22) > 0 {
		d = h.A22[0].SymmetricDim()
	}
	n := m + d*len(h.A22)
	out := mat.NewSymDense(n, nil)
	for r := 0; r < m; r++ {
		for c := r; c < m; c++ {
			out.SetSym(r, c, h.A11.At(r, c))
		}
	}
	for i := range h.A22 {
		off := m + i*d
		for r := 0; r < m; r++ {
			for c := 0; c < d; c++ {
				out.SetSym(r, off+c, h.A12[i].At(r, c))
			}
		}
		for r := 0; r < d; r++ {
			for c := r; c < d; c++ {
				out.SetSym(off+r, off+c, h.A22[i].At(r, c))
			}
		}
	}
	return out
}
