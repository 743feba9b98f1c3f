package calibration

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/config"
	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/rimage/transform"
	"go.viam.com/rigfit/spatialmath"
	"go.viam.com/rigfit/utils/matrix"
)

// Inputs are the measurements a fit runs on. They are loaded once and never modified.
type Inputs struct {
	CameraMatrix     *mat.Dense
	PlatformToCamera *spatialmath.Transform
	Detections       []Detection
	// ReferenceMarkers are the measured 4x7 homogeneous marker coordinates. They seed the marker
	// statics and define the nominal model of the initial trajectory.
	ReferenceMarkers *mat.Dense
	// PlatformCornersMetric (4xN, z = 0) and PlatformCornersImage (2xN) are optional.
	PlatformCornersMetric *mat.Dense
	PlatformCornersImage  *mat.Dense
}

// Validate checks the shapes of the inputs.
func (in *Inputs) Validate() error {
	if in.CameraMatrix == nil {
		return errors.New("inputs have no camera matrix")
	}
	if _, err := transform.NewPinholeCameraIntrinsicsFromMatrix(in.CameraMatrix); err != nil {
		return errors.Wrap(err, "invalid camera matrix")
	}
	if in.PlatformToCamera == nil {
		return errors.New("inputs have no platform to camera transform")
	}
	if len(in.Detections) == 0 {
		return errors.New("inputs have no detections")
	}
	if in.ReferenceMarkers == nil {
		return errors.New("inputs have no reference markers")
	}
	if r, c := in.ReferenceMarkers.Dims(); r != 4 || c != kinematics.MarkerCount {
		return errors.Errorf("reference markers must be 4x%d, got %dx%d", kinematics.MarkerCount, r, c)
	}
	return nil
}

// LoadInputs reads every input named by paths.
func LoadInputs(paths config.InputPaths) (*Inputs, error) {
	in, err := LoadRig(paths)
	if err != nil {
		return nil, err
	}
	table, err := matrix.ReadFile(paths.Detections)
	if err != nil {
		return nil, errors.Wrap(err, "error reading detections")
	}
	if in.Detections, err = DetectionsFromTable(table); err != nil {
		return nil, errors.Wrapf(err, "invalid detections in %s", paths.Detections)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// LoadRig reads every input named by paths except the detections: the camera, the platform
// mounting, the reference markers and the platform corners when given.
func LoadRig(paths config.InputPaths) (*Inputs, error) {
	k, err := matrix.ReadFile(paths.CameraMatrix)
	if err != nil {
		return nil, errors.Wrap(err, "error reading camera matrix")
	}
	if _, err := transform.NewPinholeCameraIntrinsicsFromMatrix(k); err != nil {
		return nil, errors.Wrapf(err, "invalid camera matrix in %s", paths.CameraMatrix)
	}
	platformMatrix, err := matrix.ReadFile(paths.PlatformToCamera)
	if err != nil {
		return nil, errors.Wrap(err, "error reading platform to camera transform")
	}
	platformToCamera, err := spatialmath.NewTransformFromMatrix(platformMatrix)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid platform to camera transform in %s", paths.PlatformToCamera)
	}
	rawMarkers, err := matrix.ReadFile(paths.ReferenceMarkers)
	if err != nil {
		return nil, errors.Wrap(err, "error reading reference markers")
	}
	markers, err := kinematics.NormalizeMarkers(rawMarkers)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid reference markers in %s", paths.ReferenceMarkers)
	}

	in := &Inputs{
		CameraMatrix:     k,
		PlatformToCamera: platformToCamera,
		ReferenceMarkers: markers,
	}
	if paths.HasPlatformCorners() {
		if in.PlatformCornersMetric, err = matrix.ReadFile(paths.PlatformCornersMetric); err != nil {
			return nil, errors.Wrap(err, "error reading metric platform corners")
		}
		if in.PlatformCornersImage, err = matrix.ReadFile(paths.PlatformCornersImage); err != nil {
			return nil, errors.Wrap(err, "error reading image platform corners")
		}
	}
	return in, nil
}

// FirstFrames returns a copy of the inputs limited to the first n detections. Non-positive n or n
// beyond the number of detections keeps every frame.
func (in *Inputs) FirstFrames(n int) *Inputs {
	limited := *in
	if n > 0 && n < len(in.Detections) {
		limited.Detections = in.Detections[:n]
	}
	return &limited
}
