package calibration

import (
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/config"
	"go.viam.com/rigfit/testutils"
)

func writeInputs(t *testing.T, dir string, in *Inputs) config.InputPaths {
	t.Helper()
	return config.InputPaths{
		CameraMatrix:     testutils.WriteMatrixFile(t, dir, "K.txt", in.CameraMatrix),
		PlatformToCamera: testutils.WriteMatrixFile(t, dir, "platform_to_camera.txt", in.PlatformToCamera.Matrix()),
		Detections:       testutils.WriteMatrixFile(t, dir, "detections.txt", DetectionsToTable(in.Detections)),
		// markers on disk are one x y z row per marker
		ReferenceMarkers: testutils.WriteMatrixFile(t, dir, "heli_points.txt", in.ReferenceMarkers.Slice(0, 3, 0, 7).T()),
	}
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()
	want := syntheticInputs(t, 3, 0, nil)
	paths := writeInputs(t, dir, want)

	got, err := LoadInputs(paths)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(got.CameraMatrix, want.CameraMatrix, 1e-12), test.ShouldBeTrue)
	test.That(t, got.PlatformToCamera.AlmostEqual(want.PlatformToCamera, 1e-12), test.ShouldBeTrue)
	test.That(t, mat.EqualApprox(got.ReferenceMarkers, want.ReferenceMarkers, 1e-12), test.ShouldBeTrue)
	test.That(t, got.Detections, test.ShouldHaveLength, 3)
	test.That(t, mat.EqualApprox(DetectionsToTable(got.Detections), DetectionsToTable(want.Detections), 1e-9),
		test.ShouldBeTrue)
	test.That(t, got.PlatformCornersMetric, test.ShouldBeNil)

	test.That(t, got.FirstFrames(2).Detections, test.ShouldHaveLength, 2)
	test.That(t, got.FirstFrames(0).Detections, test.ShouldHaveLength, 3)
	test.That(t, got.FirstFrames(10).Detections, test.ShouldHaveLength, 3)

	paths.PlatformCornersMetric = testutils.WriteMatrixFile(t, dir, "corners_metric.txt", platformCorners())
	paths.PlatformCornersImage = testutils.WriteMatrixFile(t, dir, "corners_image.txt", mat.NewDense(2, 8, nil))
	got, err = LoadInputs(paths)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(got.PlatformCornersMetric, platformCorners()), test.ShouldBeTrue)
}

func TestLoadInputsErrors(t *testing.T) {
	dir := t.TempDir()
	paths := writeInputs(t, dir, syntheticInputs(t, 2, 0, nil))

	missing := paths
	missing.Detections = filepath.Join(dir, "nope.txt")
	_, err := LoadInputs(missing)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "detections")

	badK := paths
	badK.CameraMatrix = testutils.WriteMatrixFile(t, dir, "bad_K.txt", mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 0}))
	_, err = LoadInputs(badK)
	test.That(t, err, test.ShouldNotBeNil)

	badTransform := paths
	badTransform.PlatformToCamera = testutils.WriteMatrixFile(t, dir, "bad_T.txt", mat.NewDense(2, 2, nil))
	_, err = LoadInputs(badTransform)
	test.That(t, err, test.ShouldNotBeNil)

	badMarkers := paths
	badMarkers.ReferenceMarkers = testutils.WriteMatrixFile(t, dir, "bad_markers.txt", mat.NewDense(6, 3, nil))
	_, err = LoadInputs(badMarkers)
	test.That(t, err, test.ShouldNotBeNil)
}
