// Package spatialmath defines rigid transforms in homogeneous coordinates and the elementary
// rotations and translations the rig kinematics are built from.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/utils"
)

// homogeneousTolerance bounds how far the last row of an input matrix may be from [0 0 0 1].
const homogeneousTolerance = 1e-9

// Transform is a 4x4 homogeneous rigid transform stored row-major. A Transform is never mutated
// after construction; Compose and Inverse return new values.
type Transform struct {
	data [16]float64
}

// Identity returns the transform that leaves every point unchanged.
func Identity() *Transform {
	return &Transform{data: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Translate returns a pure translation by (x, y, z).
func Translate(x, y, z float64) *Transform {
	t := Identity()
	t.data[3] = x
	t.data[7] = y
	t.data[11] = z
	return t
}

// RotateX returns a right-handed rotation of angle radians about the x axis.
func RotateX(angle float64) *Transform {
	s, c := math.Sincos(angle)
	return &Transform{data: [16]float64{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	}}
}

// RotateY returns a right-handed rotation of angle radians about the y axis.
func RotateY(angle float64) *Transform {
	s, c := math.Sincos(angle)
	return &Transform{data: [16]float64{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	}}
}

// RotateZ returns a right-handed rotation of angle radians about the z axis.
func RotateZ(angle float64) *Transform {
	s, c := math.Sincos(angle)
	return &Transform{data: [16]float64{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// NewTransform builds a transform from a 3x3 rotation block and a translation. The rotation is
// taken as given; callers that need orthonormality should check it with RotationError.
func NewTransform(rotation mat.Matrix, translation r3.Vector) (*Transform, error) {
	if r, c := rotation.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("rotation must be 3x3, got %dx%d", r, c)
	}
	t := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.data[4*i+j] = rotation.At(i, j)
		}
	}
	t.data[3] = translation.X
	t.data[7] = translation.Y
	t.data[11] = translation.Z
	return t, nil
}

// NewTransformFromMatrix copies a 4x4 homogeneous matrix (or a 3x4 [R t] matrix) into a Transform.
func NewTransformFromMatrix(m mat.Matrix) (*Transform, error) {
	rows, cols := m.Dims()
	if cols != 4 || (rows != 4 && rows != 3) {
		return nil, errors.Errorf("transform must be 4x4 or 3x4, got %dx%d", rows, cols)
	}
	t := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			t.data[4*i+j] = m.At(i, j)
		}
	}
	if rows == 4 {
		for j, want := range []float64{0, 0, 0, 1} {
			if math.Abs(m.At(3, j)-want) > homogeneousTolerance {
				return nil, errors.Errorf("last row of a homogeneous transform must be [0 0 0 1], got element %d = %v", j, m.At(3, j))
			}
		}
	}
	return t, nil
}

// At returns the element at row i and column j.
func (t *Transform) At(i, j int) float64 {
	return t.data[4*i+j]
}

// Matrix returns a copy of the transform as a 4x4 dense matrix.
func (t *Transform) Matrix() *mat.Dense {
	data := make([]float64, 16)
	copy(data, t.data[:])
	return mat.NewDense(4, 4, data)
}

// Rotation returns a copy of the 3x3 rotation block.
func (t *Transform) Rotation() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.data[0], t.data[1], t.data[2],
		t.data[4], t.data[5], t.data[6],
		t.data[8], t.data[9], t.data[10],
	})
}

// Translation returns the translation column.
func (t *Transform) Translation() r3.Vector {
	return r3.Vector{X: t.data[3], Y: t.data[7], Z: t.data[11]}
}

// Compose returns t·other, i.e. other is applied first. For a chain this reads
// childToCamera = parentToCamera.Compose(childToParent).
func (t *Transform) Compose(other *Transform) *Transform {
	out := &Transform{}
	a, b := &t.data, &other.data
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out.data[4*i+j] = a[4*i]*b[j] + a[4*i+1]*b[4+j] + a[4*i+2]*b[8+j] + a[4*i+3]*b[12+j]
		}
	}
	return out
}

// Inverse returns the inverse rigid transform [Rᵀ, -Rᵀt]. It assumes the rotation block is
// orthonormal.
func (t *Transform) Inverse() *Transform {
	out := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.data[4*i+j] = t.data[4*j+i]
		}
	}
	tr := t.Translation()
	for i := 0; i < 3; i++ {
		out.data[4*i+3] = -(out.data[4*i]*tr.X + out.data[4*i+1]*tr.Y + out.data[4*i+2]*tr.Z)
	}
	return out
}

// TransformPoint applies the transform to a single point.
func (t *Transform) TransformPoint(p r3.Vector) r3.Vector {
	d := &t.data
	return r3.Vector{
		X: d[0]*p.X + d[1]*p.Y + d[2]*p.Z + d[3],
		Y: d[4]*p.X + d[5]*p.Y + d[6]*p.Z + d[7],
		Z: d[8]*p.X + d[9]*p.Y + d[10]*p.Z + d[11],
	}
}

// Apply transforms a 4xN matrix of homogeneous points and returns a new 4xN matrix. A 3xN input is
// treated as points with unit homogeneous coordinate.
func (t *Transform) Apply(points mat.Matrix) *mat.Dense {
	rows, n := points.Dims()
	if rows != 3 && rows != 4 {
		panic(fmt.Sprintf("spatialmath: points must be 3xN or 4xN, got %dx%d", rows, n))
	}
	out := mat.NewDense(4, n, nil)
	d := &t.data
	for k := 0; k < n; k++ {
		x, y, z, w := points.At(0, k), points.At(1, k), points.At(2, k), 1.0
		if rows == 4 {
			w = points.At(3, k)
		}
		for i := 0; i < 4; i++ {
			out.Set(i, k, d[4*i]*x+d[4*i+1]*y+d[4*i+2]*z+d[4*i+3]*w)
		}
	}
	return out
}

// AlmostEqual reports whether every element of t and other differ by less than epsilon.
func (t *Transform) AlmostEqual(other *Transform, epsilon float64) bool {
	for i := range t.data {
		if !utils.Float64AlmostEqual(t.data[i], other.data[i], epsilon) {
			return false
		}
	}
	return true
}

// RotationError returns the largest absolute element of RᵀR - I together with det(R). An
// orthonormal right-handed rotation yields (≈0, ≈1).
func (t *Transform) RotationError() (float64, float64) {
	r := t.Rotation()
	var rtr mat.Dense
	rtr.Mul(r.T(), r)
	worst := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			worst = math.Max(worst, math.Abs(rtr.At(i, j)-want))
		}
	}
	return worst, mat.Det(r)
}

// String formats the transform as four bracketed rows.
func (t *Transform) String() string {
	return fmt.Sprintf("%v", mat.Formatted(t.Matrix(), mat.Squeeze()))
}
