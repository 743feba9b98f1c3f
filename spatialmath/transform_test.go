package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestElementaryRotations(t *testing.T) {
	th := math.Pi / 2
	p := r3.Vector{X: 1, Y: 0, Z: 0}

	// right-handed: +90 about z takes x to y
	out := RotateZ(th).TransformPoint(p)
	test.That(t, out.X, test.ShouldAlmostEqual, 0)
	test.That(t, out.Y, test.ShouldAlmostEqual, 1)
	test.That(t, out.Z, test.ShouldAlmostEqual, 0)

	// +90 about y takes z to x
	out = RotateY(th).TransformPoint(r3.Vector{Z: 1})
	test.That(t, out.X, test.ShouldAlmostEqual, 1)
	test.That(t, out.Z, test.ShouldAlmostEqual, 0)

	// +90 about x takes y to z
	out = RotateX(th).TransformPoint(r3.Vector{Y: 1})
	test.That(t, out.Y, test.ShouldAlmostEqual, 0)
	test.That(t, out.Z, test.ShouldAlmostEqual, 1)
}

func TestRotationOrthonormality(t *testing.T) {
	for _, angle := range []float64{-3.1, -0.7, 0, 0.3, 1.2, 2.6, 17} {
		for _, rot := range []*Transform{RotateX(angle), RotateY(angle), RotateZ(angle)} {
			worst, det := rot.RotationError()
			test.That(t, worst, test.ShouldBeLessThan, 1e-10)
			test.That(t, det, test.ShouldAlmostEqual, 1, 1e-10)
		}
	}
	chain := Translate(0.1, -0.2, 1.6).Compose(RotateX(2.6)).Compose(RotateY(0.4)).Compose(RotateZ(-1.1))
	worst, det := chain.RotationError()
	test.That(t, worst, test.ShouldBeLessThan, 1e-10)
	test.That(t, det, test.ShouldAlmostEqual, 1, 1e-10)
}

func TestComposeOrder(t *testing.T) {
	// translate after rotating: the point is rotated first, then shifted
	tf := Translate(1, 2, 3).Compose(RotateZ(math.Pi / 2))
	out := tf.TransformPoint(r3.Vector{X: 1})
	test.That(t, out.X, test.ShouldAlmostEqual, 1)
	test.That(t, out.Y, test.ShouldAlmostEqual, 3)
	test.That(t, out.Z, test.ShouldAlmostEqual, 3)

	tr := tf.Translation()
	test.That(t, tr, test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})

	// Compose does not modify its receiver
	base := Translate(1, 0, 0)
	_ = base.Compose(RotateX(1))
	test.That(t, base.AlmostEqual(Translate(1, 0, 0), 1e-15), test.ShouldBeTrue)
}

func TestDeterminism(t *testing.T) {
	build := func() *Transform {
		return Translate(0.05725, 0.05725, 0).Compose(RotateZ(0.2)).Compose(Translate(0, 0, 0.325)).Compose(RotateY(0.5))
	}
	a, b := build(), build()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			test.That(t, a.At(i, j), test.ShouldEqual, b.At(i, j))
		}
	}
}

func TestInverse(t *testing.T) {
	tf := Translate(0.3, -1, 2).Compose(RotateY(0.7)).Compose(RotateX(-0.2))
	test.That(t, tf.Compose(tf.Inverse()).AlmostEqual(Identity(), 1e-12), test.ShouldBeTrue)
	test.That(t, tf.Inverse().Compose(tf).AlmostEqual(Identity(), 1e-12), test.ShouldBeTrue)
}

func TestApply(t *testing.T) {
	tf := Translate(0, 0, 1).Compose(RotateX(0.4))
	pts := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		0, 2,
	})
	out := tf.Apply(pts)
	r, c := out.Dims()
	test.That(t, r, test.ShouldEqual, 4)
	test.That(t, c, test.ShouldEqual, 2)
	for k := 0; k < 2; k++ {
		want := tf.TransformPoint(r3.Vector{X: pts.At(0, k), Y: pts.At(1, k), Z: pts.At(2, k)})
		test.That(t, out.At(0, k), test.ShouldAlmostEqual, want.X)
		test.That(t, out.At(1, k), test.ShouldAlmostEqual, want.Y)
		test.That(t, out.At(2, k), test.ShouldAlmostEqual, want.Z)
		test.That(t, out.At(3, k), test.ShouldEqual, 1.0)
	}

	// points at infinity are only rotated
	dir := mat.NewDense(4, 1, []float64{0, 1, 0, 0})
	out = tf.Apply(dir)
	test.That(t, out.At(2, 0), test.ShouldAlmostEqual, math.Sin(0.4))
	test.That(t, out.At(3, 0), test.ShouldEqual, 0.0)

	test.That(t, func() { tf.Apply(mat.NewDense(2, 2, nil)) }, test.ShouldPanic)
}

func TestNewTransform(t *testing.T) {
	ref := Translate(1, 2, 3).Compose(RotateZ(0.3))

	tf, err := NewTransform(ref.Rotation(), ref.Translation())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.AlmostEqual(ref, 1e-15), test.ShouldBeTrue)

	_, err = NewTransform(mat.NewDense(2, 3, nil), r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)

	tf, err = NewTransformFromMatrix(ref.Matrix())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.AlmostEqual(ref, 1e-15), test.ShouldBeTrue)

	tf, err = NewTransformFromMatrix(ref.Matrix().Slice(0, 3, 0, 4))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.AlmostEqual(ref, 1e-15), test.ShouldBeTrue)

	bad := ref.Matrix()
	bad.Set(3, 0, 0.5)
	_, err = NewTransformFromMatrix(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "last row")

	_, err = NewTransformFromMatrix(mat.NewDense(4, 3, nil))
	test.That(t, err, test.ShouldNotBeNil)
}
