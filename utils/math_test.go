package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestAngleConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(DegToRad(28.9)), test.ShouldAlmostEqual, 28.9)

	rads := DegsToRads(11.6, 28.9, 0)
	test.That(t, rads, test.ShouldHaveLength, 3)
	test.That(t, rads[0], test.ShouldAlmostEqual, 11.6*math.Pi/180)
	test.That(t, rads[2], test.ShouldEqual, 0.0)
}

func TestFloatHelpers(t *testing.T) {
	test.That(t, Float64AlmostEqual(1, 1+1e-12, 1e-9), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-9), test.ShouldBeFalse)
}
