package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/spatialmath"
)

// DecomposeHomography splits a homography between the z=0 plane and normalized image coordinates
// into the two [R t] poses it is consistent with. H is assumed to be scaled so that it equals
// λ[r1 r2 t]; the two candidates correspond to λ > 0 and λ < 0. Each rotation is replaced by the
// nearest orthonormal matrix.
func DecomposeHomography(h mat.Matrix) ([]*spatialmath.Transform, error) {
	if r, c := h.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("homography must be 3x3, got %dx%d", r, c)
	}
	col := func(j int) r3.Vector {
		return r3.Vector{X: h.At(0, j), Y: h.At(1, j), Z: h.At(2, j)}
	}
	h1, h2, h3 := col(0), col(1), col(2)
	k := h1.Norm()
	if k == 0 {
		return nil, errors.Wrap(ErrDegenerateHomography, "first column of the homography is zero")
	}

	poses := make([]*spatialmath.Transform, 0, 2)
	for _, sign := range []float64{1, -1} {
		s := sign / k
		r1, r2, t := h1.Mul(s), h2.Mul(s), h3.Mul(s)
		r3v := r1.Cross(r2)
		rot := mat.NewDense(3, 3, []float64{
			r1.X, r2.X, r3v.X,
			r1.Y, r2.Y, r3v.Y,
			r1.Z, r2.Z, r3v.Z,
		})
		nearest, err := NearestRotation(rot)
		if err != nil {
			return nil, err
		}
		pose, err := spatialmath.NewTransform(nearest, t)
		if err != nil {
			return nil, err
		}
		poses = append(poses, pose)
	}
	return poses, nil
}

// NearestRotation returns the rotation matrix closest to m in the Frobenius norm, U·Vᵀ from the
// SVD of m, with the sign of the last singular direction flipped if needed to keep det = +1.
func NearestRotation(m mat.Matrix) (*mat.Dense, error) {
	mats := performSVD(m)
	if mats == nil {
		return nil, errors.New("failed to factorize rotation")
	}
	var rot mat.Dense
	rot.Mul(mats.U, mats.VT)
	if mat.Det(&rot) < 0 {
		flip := eye(3)
		flip.Set(2, 2, -1)
		rot.Mul(mats.U, flip)
		rot.Mul(&rot, mats.VT)
	}
	return &rot, nil
}

// GetNumberPositiveDepth counts the points (3xN or 4xN in the object frame) that land at
// non-negative depth once moved into the camera frame by pose.
func GetNumberPositiveDepth(pose *spatialmath.Transform, points mat.Matrix) int {
	inCamera := pose.Apply(points)
	depths := mat.Row(nil, 2, inCamera)
	count := 0
	for _, z := range depths {
		if z >= 0 {
			count++
		}
	}
	return count
}

// GetCorrectCameraPose returns the candidate pose that puts the most points in front of the
// camera. Ties keep the earlier candidate.
func GetCorrectCameraPose(poses []*spatialmath.Transform, points mat.Matrix) (*spatialmath.Transform, error) {
	if len(poses) == 0 {
		return nil, errors.New("no candidate poses")
	}
	counts := make([]float64, len(poses))
	for i, pose := range poses {
		counts[i] = float64(GetNumberPositiveDepth(pose, points))
	}
	return poses[floats.MaxIdx(counts)], nil
}
