package kinematics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// MarkerCount is the number of markers on the rig.
	MarkerCount = 7
	// ArmMarkerCount is how many of the leading markers sit on the arm; the rest are on the rotors.
	ArmMarkerCount = 3
	// MarkerParamCount is the number of marker coordinates stored at the tail of the statics.
	MarkerParamCount = 3 * MarkerCount
)

// MarkerPoints returns the 4x7 homogeneous marker coordinates stored in the last 21 statics.
// The tail is coordinate major: seven x values, then seven y values, then seven z values.
func MarkerPoints(statics []float64) (*mat.Dense, error) {
	if len(statics) < MarkerParamCount {
		return nil, errors.Errorf("statics have %d values, need at least %d marker coordinates", len(statics), MarkerParamCount)
	}
	tail := statics[len(statics)-MarkerParamCount:]
	points := mat.NewDense(4, MarkerCount, nil)
	for j := 0; j < MarkerCount; j++ {
		points.Set(0, j, tail[j])
		points.Set(1, j, tail[MarkerCount+j])
		points.Set(2, j, tail[2*MarkerCount+j])
		points.Set(3, j, 1)
	}
	return points, nil
}

// marker returns marker j from the statics tail without allocating.
func marker(statics []float64, j int) r3.Vector {
	tail := statics[len(statics)-MarkerParamCount:]
	return r3.Vector{X: tail[j], Y: tail[MarkerCount+j], Z: tail[2*MarkerCount+j]}
}

// NormalizeMarkers accepts marker coordinates as 7 rows of (x y z [w]) or as 3 or 4 rows of 7
// columns and returns them as a 4x7 homogeneous matrix. Homogeneous inputs are divided through
// by w.
func NormalizeMarkers(m mat.Matrix) (*mat.Dense, error) {
	rows, cols := m.Dims()
	at := m.At
	switch {
	case (rows == 3 || rows == 4) && cols == MarkerCount:
	case rows == MarkerCount && (cols == 3 || cols == 4):
		rows, cols = cols, rows
		at = func(i, j int) float64 { return m.At(j, i) }
	default:
		return nil, errors.Errorf("markers must be 7x3, 7x4, 3x7 or 4x7, got %dx%d", rows, cols)
	}
	points := mat.NewDense(4, MarkerCount, nil)
	for j := 0; j < cols; j++ {
		w := 1.0
		if rows == 4 {
			w = at(3, j)
			if w == 0 {
				return nil, errors.Errorf("marker %d is at infinity", j)
			}
		}
		for i := 0; i < 3; i++ {
			points.Set(i, j, at(i, j)/w)
		}
		points.Set(3, j, 1)
	}
	return points, nil
}

// FlattenMarkers returns the 21 coordinate major values of 3x7 or 4x7 marker coordinates.
func FlattenMarkers(markers mat.Matrix) ([]float64, error) {
	rows, cols := markers.Dims()
	if (rows != 3 && rows != 4) || cols != MarkerCount {
		return nil, errors.Errorf("markers must be 3x7 or 4x7, got %dx%d", rows, cols)
	}
	flat := make([]float64, 0, MarkerParamCount)
	for i := 0; i < 3; i++ {
		flat = append(flat, mat.Row(nil, i, markers)...)
	}
	return flat, nil
}

// PredictMarkers returns the 3x7 camera frame positions of the markers: the first ArmMarkerCount
// are carried by the arm frame and the remaining ones by the rotor frame.
func PredictMarkers(model Model, statics, angles []float64) *mat.Dense {
	out := mat.NewDense(3, MarkerCount, nil)
	PredictMarkersTo(out, model, statics, angles)
	return out
}

// PredictMarkersTo is PredictMarkers writing into a preallocated 3x7 or 4x7 dst.
func PredictMarkersTo(dst *mat.Dense, model Model, statics, angles []float64) {
	rotorsToCamera, armToCamera := model.Poses(statics, angles)
	for j := 0; j < MarkerCount; j++ {
		pose := rotorsToCamera
		if j < ArmMarkerCount {
			pose = armToCamera
		}
		p := pose.TransformPoint(marker(statics, j))
		dst.Set(0, j, p.X)
		dst.Set(1, j, p.Y)
		dst.Set(2, j, p.Z)
	}
	if r, _ := dst.Dims(); r == 4 {
		for j := 0; j < MarkerCount; j++ {
			dst.Set(3, j, 1)
		}
	}
}
