package calibration

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/rimage/transform"
	"go.viam.com/rigfit/solver"
	"go.viam.com/rigfit/utils"
)

// ResidualsPerFrame is the number of residuals one frame contributes: a u and a v residual for
// each marker.
const ResidualsPerFrame = 2 * kinematics.MarkerCount

// RigProblem is the reprojection problem of a rig model over a sequence of frames. Its parameter
// vector is the model statics followed by the yaw, pitch and roll of every frame.
type RigProblem struct {
	model      kinematics.Model
	k          *mat.Dense
	detections []Detection
	workers    int
}

var _ solver.BlockProblem = (*RigProblem)(nil)

// NewRigProblem returns the problem of fitting model to detections seen through the camera
// matrix k. Jacobian blocks are evaluated by at most workers goroutines; zero or fewer uses
// utils.ParallelFactor.
func NewRigProblem(model kinematics.Model, k mat.Matrix, detections []Detection, workers int) (*RigProblem, error) {
	if model == nil {
		return nil, errors.New("rig problem needs a model")
	}
	if r, c := k.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("camera matrix must be 3x3, got %dx%d", r, c)
	}
	if len(detections) == 0 {
		return nil, errors.New("rig problem needs at least one detection")
	}
	return &RigProblem{
		model:      model,
		k:          mat.DenseCopyOf(k),
		detections: detections,
		workers:    workers,
	}, nil
}

// Model returns the rig model being fit.
func (p *RigProblem) Model() kinematics.Model {
	return p.model
}

// StaticDim is the number of model statics.
func (p *RigProblem) StaticDim() int {
	return p.model.StaticParamCount()
}

// DynamicDim is the number of joint angles per frame.
func (p *RigProblem) DynamicDim() int {
	return kinematics.JointCount
}

// Frames is the number of detections.
func (p *RigProblem) Frames() int {
	return len(p.detections)
}

// ResidualCount is ResidualsPerFrame times the number of frames.
func (p *RigProblem) ResidualCount() int {
	return ResidualsPerFrame * len(p.detections)
}

// ParamCount is the length of the parameter vector.
func (p *RigProblem) ParamCount() int {
	return p.StaticDim() + p.DynamicDim()*p.Frames()
}

// Split returns views of the statics and of the angles of every frame in the parameter vector.
func (p *RigProblem) Split(params []float64) ([]float64, [][]float64) {
	m, d := p.StaticDim(), p.DynamicDim()
	angles := make([][]float64, p.Frames())
	for i := range angles {
		angles[i] = params[m+d*i : m+d*(i+1)]
	}
	return params[:m], angles
}

// FrameResiduals writes the weighted reprojection residuals of frame i into dst: the u residuals
// of markers 0 to 6 followed by their v residuals.
func (p *RigProblem) FrameResiduals(dst, statics, angles []float64, i int) {
	uv := transform.Project(p.k, kinematics.PredictMarkers(p.model, statics, angles))
	for j, obs := range p.detections[i].Observations {
		dst[j] = (uv.At(0, j) - obs.U) * obs.Weight
		dst[kinematics.MarkerCount+j] = (uv.At(1, j) - obs.V) * obs.Weight
	}
}

// Residuals writes every frame's residuals into dst.
func (p *RigProblem) Residuals(dst, params []float64) {
	statics, angles := p.Split(params)
	for i := range p.detections {
		p.FrameResiduals(dst[ResidualsPerFrame*i:ResidualsPerFrame*(i+1)], statics, angles[i], i)
	}
}

// JacobianBlocks evaluates the per-frame static and dynamic forward difference Jacobians. Frames
// are independent and evaluated in parallel, each into its own rows of the result.
func (p *RigProblem) JacobianBlocks(ctx context.Context, params []float64, eps float64) (*solver.BlockJacobian, error) {
	if len(params) != p.ParamCount() {
		return nil, errors.Errorf("parameter vector has length %d, expected %d", len(params), p.ParamCount())
	}
	m, l := p.StaticDim(), p.Frames()
	jac := &solver.BlockJacobian{
		Static:  mat.NewDense(ResidualsPerFrame*l, m, nil),
		Dynamic: make([]*mat.Dense, l),
	}
	sharedStatics, sharedAngles := p.Split(params)

	err := utils.RunParallel(ctx, l, p.workers, func(_ context.Context, i int) error {
		statics := append([]float64(nil), sharedStatics...)
		angles := append([]float64(nil), sharedAngles[i]...)
		origin := make([]float64, ResidualsPerFrame)
		p.FrameResiduals(origin, statics, angles, i)

		static := solver.NumericalJacobianAt(func(dst, s []float64) {
			p.FrameResiduals(dst, s, angles, i)
		}, statics, origin, eps)
		jac.Static.Slice(ResidualsPerFrame*i, ResidualsPerFrame*(i+1), 0, m).(*mat.Dense).Copy(static)

		jac.Dynamic[i] = solver.NumericalJacobianAt(func(dst, a []float64) {
			p.FrameResiduals(dst, statics, a, i)
		}, angles, origin, eps)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jac, nil
}
