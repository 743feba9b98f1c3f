package calibration

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/config"
	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/logging"
	"go.viam.com/rigfit/solver"
	"go.viam.com/rigfit/utils"
)

// Options controls a model fit.
type Options struct {
	// Frames limits the fit to the first Frames detections. Zero uses every frame.
	Frames int
	// Workers bounds the goroutines evaluating Jacobian blocks. Zero uses utils.ParallelFactor.
	Workers int
	// InitialAngles seeds the trajectory of the first frame, in radians.
	InitialAngles []float64
	Solver        solver.Options
}

// OptionsFromConfig returns the fit options a config describes.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Frames:        cfg.Frames,
		Workers:       cfg.Workers,
		InitialAngles: cfg.InitialAngles(),
		Solver:        cfg.SolverOptions(),
	}
}

// ModelResult is the outcome of fitting one model variant.
type ModelResult struct {
	Variant kinematics.Variant
	// ParamNames and Params are the fitted structural parameters.
	ParamNames []string
	Params     []float64
	// Markers are the fitted 4x7 homogeneous marker coordinates.
	Markers *mat.Dense
	Frames  int
	Summary *solver.Solution
	// InitialStats are the reprojection errors of the starting point and Stats those of the fit.
	InitialStats Stats
	Stats        Stats
}

// OptimizeModel fits the variant to the inputs. The statics start at the nominal parameters with
// the reference markers and the angles at the initial trajectory; both are then refined jointly.
func OptimizeModel(
	ctx context.Context,
	logger logging.Logger,
	in *Inputs,
	variant kinematics.Variant,
	opts Options,
) (*ModelResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.FirstFrames(opts.Frames)
	seed := opts.InitialAngles
	if len(seed) == 0 {
		seed = utils.DegsToRads(config.DefaultInitialAnglesDegrees...)
	}
	model, err := kinematics.NewModel(variant, in.PlatformToCamera)
	if err != nil {
		return nil, err
	}
	logger = logger.Sublogger(variant.String())

	trajectory, err := InitialTrajectory(ctx, logger, in, seed, opts.Solver)
	if err != nil {
		return nil, errors.Wrap(err, "error estimating the initial trajectory")
	}
	statics, err := nominalStatics(model, in.ReferenceMarkers)
	if err != nil {
		return nil, err
	}
	p0 := statics
	for _, angles := range trajectory {
		p0 = append(p0, angles...)
	}

	problem, err := NewRigProblem(model, in.CameraMatrix, in.Detections, opts.Workers)
	if err != nil {
		return nil, err
	}
	initialStats, err := ComputeStats(ReprojectionErrors(problem, p0))
	if err != nil {
		return nil, err
	}
	logger.Infow("optimizing model", "frames", problem.Frames(), "parameters", problem.ParamCount(),
		"initial_rms", initialStats.RMS)

	solution, err := solver.BlockLM(ctx, logger, problem, p0, opts.Solver)
	if err != nil {
		return nil, errors.Wrapf(err, "error optimizing the %s model", variant)
	}

	fitted, _ := problem.Split(solution.X)
	markers, err := kinematics.MarkerPoints(fitted)
	if err != nil {
		return nil, err
	}
	finalStats, err := ComputeStats(ReprojectionErrors(problem, solution.X))
	if err != nil {
		return nil, err
	}
	logger.Infow("optimized model", "iterations", solution.Iterations, "converged", solution.Converged,
		"cost", solution.Cost, "rms", finalStats.RMS, "max", finalStats.Max)

	return &ModelResult{
		Variant:      variant,
		ParamNames:   model.StructuralParamNames(),
		Params:       append([]float64(nil), fitted[:model.StructuralParamCount()]...),
		Markers:      markers,
		Frames:       problem.Frames(),
		Summary:      solution,
		InitialStats: initialStats,
		Stats:        finalStats,
	}, nil
}
