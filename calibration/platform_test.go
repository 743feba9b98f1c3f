package calibration

import (
	"context"
	"math/rand/v2"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/logging"
	"go.viam.com/rigfit/rimage/transform"
	"go.viam.com/rigfit/solver"
	"go.viam.com/rigfit/spatialmath"
	"go.viam.com/rigfit/testutils"
	"go.viam.com/rigfit/utils/matrix"
)

func platformCorners() *mat.Dense {
	return mat.NewDense(4, 8, []float64{
		0, 0.1145, 0.1145, 0, 0.05, 0.02, 0.09, 0.03,
		0, 0, 0.1145, 0.1145, 0.03, 0.09, 0.06, 0.01,
		0, 0, 0, 0, 0, 0, 0, 0,
		1, 1, 1, 1, 1, 1, 1, 1,
	})
}

func platformTruth() *spatialmath.Transform {
	return spatialmath.Translate(-0.05, 0.02, 0.8).Compose(spatialmath.RotateX(2.6)).Compose(spatialmath.RotateZ(0.3))
}

func TestEstimatePlatformPoseNoiseFree(t *testing.T) {
	logger := logging.NewTestLogger(t)
	k := testutils.CameraMatrix()
	corners := platformCorners()
	pixels := transform.Project(k, platformTruth().Apply(corners))

	pose, err := EstimatePlatformPose(context.Background(), logger, k, corners, pixels, solver.Options{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Linear.AlmostEqual(platformTruth(), 1e-6), test.ShouldBeTrue)
	test.That(t, pose.Refined.AlmostEqual(platformTruth(), 1e-6), test.ShouldBeTrue)
	for _, errs := range [][]float64{pose.HomographyErrors, pose.LinearErrors, pose.RefinedErrors} {
		test.That(t, errs, test.ShouldHaveLength, 8)
		test.That(t, floats.Max(errs), test.ShouldBeLessThan, 1e-4)
	}

	// 3xN corners are the same points
	pose, err = EstimatePlatformPose(context.Background(), logger, k, corners.Slice(0, 3, 0, 8), pixels, solver.Options{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Refined.AlmostEqual(platformTruth(), 1e-6), test.ShouldBeTrue)
}

func TestEstimatePlatformPoseNoisy(t *testing.T) {
	logger := logging.NewTestLogger(t)
	k := testutils.CameraMatrix()
	corners := platformCorners()
	pixels := matrix.AddGaussianNoise(transform.Project(k, platformTruth().Apply(corners)), 0.5, rand.NewPCG(7, 8))

	pose, err := EstimatePlatformPose(context.Background(), logger, k, corners, pixels, solver.Options{})
	test.That(t, err, test.ShouldBeNil)
	worst, det := pose.Refined.RotationError()
	test.That(t, worst, test.ShouldBeLessThan, 1e-10)
	test.That(t, det, test.ShouldAlmostEqual, 1, 1e-10)
	// the refinement starts at the linear pose and never increases the squared error
	test.That(t, floats.Dot(pose.RefinedErrors, pose.RefinedErrors), test.ShouldBeLessThanOrEqualTo,
		floats.Dot(pose.LinearErrors, pose.LinearErrors)+1e-9)
	test.That(t, pose.Refined.Translation().Sub(platformTruth().Translation()).Norm(), test.ShouldBeLessThan, 0.01)
}

func TestEstimatePlatformPoseErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	k := testutils.CameraMatrix()
	corners := platformCorners()
	pixels := transform.Project(k, platformTruth().Apply(corners))

	_, err := EstimatePlatformPose(context.Background(), logger, k, corners, pixels.Slice(0, 2, 0, 5), solver.Options{})
	test.That(t, err, test.ShouldNotBeNil)

	raised := mat.DenseCopyOf(corners)
	raised.Set(2, 3, 0.01)
	_, err = EstimatePlatformPose(context.Background(), logger, k, raised, pixels, solver.Options{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "z = 0")

	_, err = EstimatePlatformPose(context.Background(), logger, k, corners.Slice(0, 2, 0, 8), pixels, solver.Options{})
	test.That(t, err, test.ShouldNotBeNil)

	few := corners.Slice(0, 4, 0, 3)
	_, err = EstimatePlatformPose(context.Background(), logger, k, few, pixels.Slice(0, 2, 0, 3), solver.Options{})
	test.That(t, err, test.ShouldNotBeNil)
}
