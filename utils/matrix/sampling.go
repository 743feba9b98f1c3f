package matrix

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AddGaussianNoise returns a copy of m where every element has zero mean gaussian noise with
// standard deviation sigma added. A nil src uses the global random source.
func AddGaussianNoise(m mat.Matrix, sigma float64, src rand.Source) *mat.Dense {
	noisy := mat.DenseCopyOf(m)
	if sigma <= 0 {
		return noisy
	}
	dist := distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   src,
	}
	noisy.Apply(func(_, _ int, v float64) float64 {
		return v + dist.Rand()
	}, noisy)
	return noisy
}
