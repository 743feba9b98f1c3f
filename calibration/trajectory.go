package calibration

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/logging"
	"go.viam.com/rigfit/solver"
)

// InitialTrajectory estimates the yaw, pitch and roll of every frame with the nominal simple
// model carrying the reference markers. Each frame is a small dense least squares fit; the first
// frame starts at seed and every later frame at the previous frame's estimate.
func InitialTrajectory(
	ctx context.Context,
	logger logging.Logger,
	in *Inputs,
	seed []float64,
	opts solver.Options,
) ([][]float64, error) {
	if len(seed) != kinematics.JointCount {
		return nil, errors.Errorf("trajectory seed must have %d angles, got %d", kinematics.JointCount, len(seed))
	}
	model, err := kinematics.NewModel(kinematics.Simple, in.PlatformToCamera)
	if err != nil {
		return nil, err
	}
	statics, err := nominalStatics(model, in.ReferenceMarkers)
	if err != nil {
		return nil, err
	}
	problem, err := NewRigProblem(model, in.CameraMatrix, in.Detections, 1)
	if err != nil {
		return nil, err
	}

	trajectory := make([][]float64, len(in.Detections))
	previous := seed
	for i := range in.Detections {
		frame := i
		solution, err := solver.LevenbergMarquardt(ctx, logger, solver.Problem{
			Size: ResidualsPerFrame,
			Residuals: func(dst, angles []float64) {
				problem.FrameResiduals(dst, statics, angles, frame)
			},
		}, previous, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "error estimating the angles of frame %d", i)
		}
		trajectory[i] = solution.X
		previous = solution.X
	}
	logger.Debugw("initial trajectory estimated", "frames", len(trajectory))
	return trajectory, nil
}

// nominalStatics is the model's nominal structural parameters followed by the flattened markers.
func nominalStatics(model kinematics.Model, markers mat.Matrix) ([]float64, error) {
	flat, err := kinematics.FlattenMarkers(markers)
	if err != nil {
		return nil, err
	}
	return append(model.NominalParams(), flat...), nil
}
