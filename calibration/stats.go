package calibration

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/rimage/transform"
)

// Stats summarizes reprojection errors in pixels.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	RMS    float64 `json:"rms"`
}

// ComputeStats summarizes errors. An empty input gives zero Stats.
func ComputeStats(errs []float64) (Stats, error) {
	if len(errs) == 0 {
		return Stats{}, nil
	}
	median, err := stats.Median(errs)
	if err != nil {
		return Stats{}, err
	}
	maximum, err := stats.Max(errs)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Count:  len(errs),
		Mean:   stat.Mean(errs, nil),
		Median: median,
		Max:    maximum,
		RMS:    math.Sqrt(floats.Dot(errs, errs) / float64(len(errs))),
	}, nil
}

// ReprojectionErrors returns the pixel distance between prediction and observation of every
// visible marker, frame by frame. Weights only select markers; they do not scale the distances.
func ReprojectionErrors(problem *RigProblem, params []float64) []float64 {
	statics, angles := problem.Split(params)
	var errs []float64
	for i := range problem.detections {
		uv := transform.Project(problem.k, kinematics.PredictMarkers(problem.model, statics, angles[i]))
		for j, obs := range problem.detections[i].Observations {
			if !obs.Visible() {
				continue
			}
			errs = append(errs, math.Hypot(uv.At(0, j)-obs.U, uv.At(1, j)-obs.V))
		}
	}
	return errs
}

// pixelErrors returns the per column distance between two 2xN pixel matrices.
func pixelErrors(predicted, observed mat.Matrix) []float64 {
	_, n := observed.Dims()
	errs := make([]float64, n)
	for j := range errs {
		errs[j] = math.Hypot(predicted.At(0, j)-observed.At(0, j), predicted.At(1, j)-observed.At(1, j))
	}
	return errs
}
