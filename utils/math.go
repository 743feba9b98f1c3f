// Package utils contains small numeric helpers and the worker pool shared by the solver packages.
package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// DegsToRads converts every element of degrees into a new slice of radians.
func DegsToRads(degrees ...float64) []float64 {
	radians := make([]float64, len(degrees))
	for i, d := range degrees {
		radians[i] = DegToRad(d)
	}
	return radians
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}
