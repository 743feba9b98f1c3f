// Package testutils holds shared fixtures for tests: a synthetic camera, rig mounting and marker
// layout, and helpers for writing them to disk.
package testutils

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/spatialmath"
)

// CameraMatrix returns the intrinsics of a 1280x960 synthetic camera.
func CameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1000, 0, 640,
		0, 1000, 480,
		0, 0, 1,
	})
}

// PlatformToCamera places the rig platform 1.6m in front of the camera, tilted so the camera looks
// down on it.
func PlatformToCamera() *spatialmath.Transform {
	return spatialmath.Translate(-0.3, 0.1, 1.6).Compose(spatialmath.RotateX(2.6))
}

// ReferenceMarkers returns the 4x7 homogeneous marker layout. The first three markers are in the
// arm frame and the last four in the rotor frame.
func ReferenceMarkers() *mat.Dense {
	return mat.NewDense(4, 7, []float64{
		-0.35, -0.25, -0.15, 0.0, 0.0, 0.03, 0.03,
		0.0, 0.02, -0.02, 0.2, -0.2, 0.18, -0.18,
		0.02, 0.0, 0.01, 0.0, 0.0, 0.02, -0.02,
		1, 1, 1, 1, 1, 1, 1,
	})
}

// TrueLengths returns the structural parameters of the simple rig used to synthesize data.
func TrueLengths() []float64 {
	return []float64{0.1145, 0.325, 0.050, 0.65, 0.030}
}

// Trajectory returns frames joint angle triplets (yaw, pitch, roll) that move smoothly through a
// range around (0.25, 0.45, 0).
func Trajectory(frames int) [][]float64 {
	traj := make([][]float64, frames)
	for i := range traj {
		f := float64(i)
		traj[i] = []float64{0.2 + 0.03*f, 0.4 + 0.02*f, -0.05 + 0.04*f}
	}
	return traj
}
