package matrix

import (
	"bytes"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestReadText(t *testing.T) {
	input := `# heli points
0.1 0.2 0.3 1

-1.5e-2, 4, 5, 1
`
	m, err := ReadText(strings.NewReader(input))
	test.That(t, err, test.ShouldBeNil)
	rows, cols := m.Dims()
	test.That(t, rows, test.ShouldEqual, 2)
	test.That(t, cols, test.ShouldEqual, 4)
	test.That(t, m.At(1, 0), test.ShouldAlmostEqual, -0.015)
	test.That(t, m.At(1, 2), test.ShouldEqual, 5.0)

	_, err = ReadText(strings.NewReader("1 2 3\n4 5\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line 2")

	_, err = ReadText(strings.NewReader("1 two 3\n"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadText(strings.NewReader("# nothing\n\n"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, -2.5, math.Pi, 1e-12, 0, 7})
	var buf bytes.Buffer
	test.That(t, WriteText(&buf, m), test.ShouldBeNil)
	test.That(t, strings.Count(buf.String(), "\n"), test.ShouldEqual, 2)

	back, err := ReadText(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(m, back), test.ShouldBeTrue)

	path := filepath.Join(t.TempDir(), "params.txt")
	test.That(t, WriteVectorFile(path, []float64{0.1145, 0.325}), test.ShouldBeNil)
	fromFile, err := ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	rows, cols := fromFile.Dims()
	test.That(t, rows, test.ShouldEqual, 2)
	test.That(t, cols, test.ShouldEqual, 1)
	test.That(t, fromFile.At(1, 0), test.ShouldEqual, 0.325)

	test.That(t, WriteVectorFile(path, nil), test.ShouldNotBeNil)
	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAddGaussianNoise(t *testing.T) {
	m := mat.NewDense(2, 500, nil)
	same := AddGaussianNoise(m, 0, nil)
	test.That(t, mat.Equal(m, same), test.ShouldBeTrue)

	noisy := AddGaussianNoise(m, 0.5, rand.NewPCG(1, 2))
	test.That(t, m.At(0, 0), test.ShouldEqual, 0.0)
	sum, sumSq := 0.0, 0.0
	for j := 0; j < 500; j++ {
		for i := 0; i < 2; i++ {
			v := noisy.At(i, j)
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / 1000
	std := math.Sqrt(sumSq/1000 - mean*mean)
	test.That(t, mean, test.ShouldAlmostEqual, 0, 0.1)
	test.That(t, std, test.ShouldAlmostEqual, 0.5, 0.1)
}
