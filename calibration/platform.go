package calibration

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/logging"
	"go.viam.com/rigfit/rimage/transform"
	"go.viam.com/rigfit/solver"
	"go.viam.com/rigfit/spatialmath"
)

const planarTolerance = 1e-9

// PlatformPose is the pose of the planar platform in the camera frame estimated three ways, with
// the per corner reprojection errors of each.
type PlatformPose struct {
	// Homography maps platform [X Y 1] to normalized image coordinates.
	Homography *mat.Dense
	// Linear is the [R t] decomposed from the homography.
	Linear *spatialmath.Transform
	// Refined minimizes the reprojection error starting from Linear.
	Refined *spatialmath.Transform

	HomographyErrors []float64
	LinearErrors     []float64
	RefinedErrors    []float64
	Summary          *solver.Solution
}

// EstimatePlatformPose estimates the platform to camera transform from corners given in platform
// coordinates (3xN or 4xN homogeneous, all on z = 0) and their 2xN pixel observations.
func EstimatePlatformPose(
	ctx context.Context,
	logger logging.Logger,
	k, metric, pixels mat.Matrix,
	opts solver.Options,
) (*PlatformPose, error) {
	corners, err := planarCorners(metric)
	if err != nil {
		return nil, err
	}
	_, n := corners.Dims()
	if r, c := pixels.Dims(); r != 2 || c != n {
		return nil, errors.Errorf("pixels must be 2x%d to match the corners, got %dx%d", n, r, c)
	}

	xy, err := transform.NormalizePixels(k, pixels)
	if err != nil {
		return nil, err
	}
	planar := corners.Slice(0, 2, 0, n)
	h, err := transform.EstimateHomography(xy, planar)
	if err != nil {
		return nil, err
	}
	candidates, err := transform.DecomposeHomography(h)
	if err != nil {
		return nil, err
	}
	linear, err := transform.GetCorrectCameraPose(candidates, corners)
	if err != nil {
		return nil, err
	}
	if front := transform.GetNumberPositiveDepth(linear, corners); front < n {
		logger.Warnw("no platform pose candidate puts every corner in front of the camera",
			"in_front", front, "corners", n)
	}

	r0, err := spatialmath.NewTransform(linear.Rotation(), r3.Vector{})
	if err != nil {
		return nil, err
	}
	t0 := linear.Translation()
	residuals := func(dst, p []float64) {
		uv := transform.Project(k, parametrizedPose(p, r0).Apply(corners))
		for j := 0; j < n; j++ {
			dst[j] = uv.At(0, j) - pixels.At(0, j)
			dst[n+j] = uv.At(1, j) - pixels.At(1, j)
		}
	}
	solution, err := solver.LevenbergMarquardt(ctx, logger, solver.Problem{
		Size:      2 * n,
		Residuals: residuals,
	}, []float64{0, 0, 0, t0.X, t0.Y, t0.Z}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "error refining the platform pose")
	}
	refined := parametrizedPose(solution.X, r0)

	pose := &PlatformPose{
		Homography:       h,
		Linear:           linear,
		Refined:          refined,
		HomographyErrors: pixelErrors(transform.Project(k, transform.ApplyHomography(h, planar)), pixels),
		LinearErrors:     pixelErrors(transform.Project(k, linear.Apply(corners)), pixels),
		RefinedErrors:    pixelErrors(transform.Project(k, refined.Apply(corners)), pixels),
		Summary:          solution,
	}
	logger.Debugw("estimated platform pose", "iterations", solution.Iterations, "cost", solution.Cost)
	return pose, nil
}

// parametrizedPose is [Rx(p0)·Ry(p1)·Rz(p2)·R0 | (p3, p4, p5)] for a pure rotation r0.
func parametrizedPose(p []float64, r0 *spatialmath.Transform) *spatialmath.Transform {
	return spatialmath.Translate(p[3], p[4], p[5]).
		Compose(spatialmath.RotateX(p[0])).
		Compose(spatialmath.RotateY(p[1])).
		Compose(spatialmath.RotateZ(p[2])).
		Compose(r0)
}

// planarCorners returns the corners as 4xN homogeneous points and checks they lie on z = 0.
func planarCorners(metric mat.Matrix) (*mat.Dense, error) {
	rows, n := metric.Dims()
	if rows != 3 && rows != 4 {
		return nil, errors.Errorf("platform corners must be 3xN or 4xN, got %dx%d", rows, n)
	}
	corners := mat.NewDense(4, n, nil)
	for j := 0; j < n; j++ {
		w := 1.0
		if rows == 4 {
			w = metric.At(3, j)
		}
		if w == 0 {
			return nil, errors.Errorf("platform corner %d is at infinity", j)
		}
		if z := metric.At(2, j) / w; math.Abs(z) > planarTolerance {
			return nil, errors.Errorf("platform corner %d is not on the z = 0 plane (z = %g)", j, z)
		}
		corners.Set(0, j, metric.At(0, j)/w)
		corners.Set(1, j, metric.At(1, j)/w)
		corners.Set(3, j, 1)
	}
	return corners, nil
}
