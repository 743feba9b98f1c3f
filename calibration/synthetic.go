package calibration

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/rimage/transform"
	"go.viam.com/rigfit/utils/matrix"
)

// SynthesizeDetections projects the markers of a rig with known statics along a known trajectory
// and returns fully weighted detections. Positive noiseSigma adds zero mean gaussian pixel noise
// drawn from src.
func SynthesizeDetections(
	model kinematics.Model,
	k mat.Matrix,
	statics []float64,
	trajectory [][]float64,
	noiseSigma float64,
	src rand.Source,
) ([]Detection, error) {
	if len(statics) != model.StaticParamCount() {
		return nil, errors.Errorf("%s model needs %d statics, got %d", model.Variant(), model.StaticParamCount(), len(statics))
	}
	detections := make([]Detection, len(trajectory))
	for i, angles := range trajectory {
		if len(angles) != kinematics.JointCount {
			return nil, errors.Errorf("frame %d has %d angles, expected %d", i, len(angles), kinematics.JointCount)
		}
		uv := transform.Project(k, kinematics.PredictMarkers(model, statics, angles))
		uv = matrix.AddGaussianNoise(uv, noiseSigma, src)
		for j := range detections[i].Observations {
			detections[i].Observations[j] = Observation{Weight: 1, U: uv.At(0, j), V: uv.At(1, j)}
		}
	}
	return detections, nil
}

// SweepTrajectory returns frames joint angle triplets that sweep the yaw through a radian while
// the pitch and roll oscillate, starting near the default trajectory seed.
func SweepTrajectory(frames int) [][]float64 {
	trajectory := make([][]float64, frames)
	for i := range trajectory {
		s := 0.0
		if frames > 1 {
			s = float64(i) / float64(frames-1)
		}
		trajectory[i] = []float64{
			0.2 + s,
			0.5 + 0.15*math.Sin(2*math.Pi*s),
			0.2 * math.Sin(4*math.Pi*s),
		}
	}
	return trajectory
}
