// Package calibration fits the kinematic rig model to marker detections: it seeds a per-frame
// trajectory, assembles the block structured reprojection problem and solves it, and estimates
// the pose of the planar platform from its corners.
package calibration

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/kinematics"
)

// detectionColumns is the width of a detections table row: (weight, u, v) for every marker.
const detectionColumns = 3 * kinematics.MarkerCount

// Observation is one marker in one image. A zero weight means the marker was not detected.
type Observation struct {
	Weight float64
	U      float64
	V      float64
}

// Visible reports whether the observation contributes to the residuals.
func (o Observation) Visible() bool {
	return o.Weight > 0
}

// Detection holds the observations of every marker in one frame.
type Detection struct {
	Observations [kinematics.MarkerCount]Observation
}

// Pixels returns the observed 2x7 pixel coordinates.
func (d *Detection) Pixels() *mat.Dense {
	uv := mat.NewDense(2, kinematics.MarkerCount, nil)
	for j, obs := range d.Observations {
		uv.Set(0, j, obs.U)
		uv.Set(1, j, obs.V)
	}
	return uv
}

// VisibleCount returns how many markers were detected.
func (d *Detection) VisibleCount() int {
	return lo.CountBy(d.Observations[:], Observation.Visible)
}

// DetectionsFromTable parses an l x 21 table whose rows hold (weight, u, v) for each marker.
func DetectionsFromTable(table mat.Matrix) ([]Detection, error) {
	rows, cols := table.Dims()
	if cols != detectionColumns {
		return nil, errors.Errorf("detections must have %d columns, got %dx%d", detectionColumns, rows, cols)
	}
	detections := make([]Detection, rows)
	for i := range detections {
		for j, triplet := range lo.Chunk(mat.Row(nil, i, table), 3) {
			if triplet[0] < 0 {
				return nil, errors.Errorf("detection %d marker %d has negative weight %g", i, j, triplet[0])
			}
			detections[i].Observations[j] = Observation{Weight: triplet[0], U: triplet[1], V: triplet[2]}
		}
	}
	return detections, nil
}

// DetectionsToTable is the inverse of DetectionsFromTable.
func DetectionsToTable(detections []Detection) *mat.Dense {
	if len(detections) == 0 {
		return &mat.Dense{}
	}
	table := mat.NewDense(len(detections), detectionColumns, nil)
	for i := range detections {
		row := lo.FlatMap(detections[i].Observations[:], func(obs Observation, _ int) []float64 {
			return []float64{obs.Weight, obs.U, obs.V}
		})
		table.SetRow(i, row)
	}
	return table
}
