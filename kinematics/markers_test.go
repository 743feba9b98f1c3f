package kinematics

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/testutils"
)

func TestFlattenMarkersRoundTrip(t *testing.T) {
	reference := testutils.ReferenceMarkers()
	flat, err := FlattenMarkers(reference)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, flat, test.ShouldHaveLength, MarkerParamCount)
	// coordinate major: all x first
	test.That(t, flat[:MarkerCount], test.ShouldResemble, mat.Row(nil, 0, reference))
	test.That(t, flat[2*MarkerCount], test.ShouldEqual, reference.At(2, 0))

	statics := append([]float64{1, 2, 3, 4, 5}, flat...)
	points, err := MarkerPoints(statics)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(points, reference), test.ShouldBeTrue)

	_, err = MarkerPoints(flat[:20])
	test.That(t, err, test.ShouldNotBeNil)
	_, err = FlattenMarkers(mat.NewDense(7, 3, nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNormalizeMarkers(t *testing.T) {
	reference := testutils.ReferenceMarkers()

	// 7 rows of x y z 1
	rows := mat.DenseCopyOf(reference.T())
	got, err := NormalizeMarkers(rows)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(got, reference), test.ShouldBeTrue)

	// 7 rows of x y z
	got, err = NormalizeMarkers(rows.Slice(0, 7, 0, 3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(got, reference), test.ShouldBeTrue)

	// 3x7 without the homogeneous row
	got, err = NormalizeMarkers(reference.Slice(0, 3, 0, 7))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(got, reference), test.ShouldBeTrue)

	// scaled homogeneous coordinates are divided through
	scaled := mat.DenseCopyOf(reference)
	scaled.Scale(2, scaled)
	got, err = NormalizeMarkers(scaled)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(got, reference, 1e-15), test.ShouldBeTrue)

	atInfinity := mat.DenseCopyOf(reference)
	atInfinity.Set(3, 2, 0)
	_, err = NormalizeMarkers(atInfinity)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NormalizeMarkers(mat.NewDense(6, 3, nil))
	test.That(t, err, test.ShouldNotBeNil)
}
