package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// minHomographyPoints is the smallest correspondence count that determines a homography.
const minHomographyPoints = 4

// ErrDegenerateHomography is returned when the correspondences do not determine a homography.
var ErrDegenerateHomography = errors.New("point correspondences do not determine a homography")

// EstimateHomography estimates the homography H mapping planar points XY (2xN) to image points
// xy (2xN) with the normalized direct linear transform: xy ~ H·[X Y 1]ᵀ. Both point sets are
// normalized as in Multiple View Geometry, Alg 4.2, and at least 4 correspondences are needed.
// The result is scaled so that H[2][2] is 1 when that entry is not zero.
func EstimateHomography(xy, XY mat.Matrix) (*mat.Dense, error) {
	rImg, nImg := xy.Dims()
	rObj, nObj := XY.Dims()
	if rImg < 2 || rObj < 2 {
		return nil, errors.Errorf("point sets must have at least 2 rows, got %d and %d", rImg, rObj)
	}
	if nImg != nObj {
		return nil, errors.Errorf("sets of points must have the same number of elements, got %d and %d", nImg, nObj)
	}
	if nImg < minHomographyPoints {
		return nil, errors.Errorf("sets of points must have at least %d elements, got %d", minHomographyPoints, nImg)
	}

	imgPts, tImg := normalizePoints(columnsToPoints(xy))
	objPts, tObj := normalizePoints(columnsToPoints(XY))

	a := mat.NewDense(2*nImg, 9, nil)
	for i := range imgPts {
		X, Y := objPts[i].X, objPts[i].Y
		x, y := imgPts[i].X, imgPts[i].Y
		a.SetRow(2*i, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x, -x})
		a.SetRow(2*i+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y, -y})
	}
	mats := performSVD(a)
	if mats == nil {
		return nil, errors.Wrap(ErrDegenerateHomography, "SVD failed")
	}
	// the system is rank 8 for a determined homography
	if nonZero := countAbove(mats.S, 1e-12*mats.S.At(0, 0)); nonZero < 8 {
		return nil, errors.Wrapf(ErrDegenerateHomography, "rank %d", nonZero)
	}

	h := mats.V.ColView(8)
	hData := make([]float64, 9)
	for i := range hData {
		hData[i] = h.AtVec(i)
	}
	hNorm := mat.NewDense(3, 3, hData)

	// undo normalization: H = T_img⁻¹ · Hn · T_obj
	var tImgInv, out mat.Dense
	if err := tImgInv.Inverse(tImg); err != nil {
		return nil, errors.Wrap(ErrDegenerateHomography, "normalization is not invertible")
	}
	out.Mul(&tImgInv, hNorm)
	out.Mul(&out, tObj)
	if s := out.At(2, 2); s != 0 {
		out.Scale(1/s, &out)
	}
	return &out, nil
}

// ApplyHomography maps 2xN planar points through h and returns the 3xN homogeneous image points.
func ApplyHomography(h, XY mat.Matrix) *mat.Dense {
	_, n := XY.Dims()
	XY1 := mat.NewDense(3, n, nil)
	for j := 0; j < n; j++ {
		XY1.Set(0, j, XY.At(0, j))
		XY1.Set(1, j, XY.At(1, j))
		XY1.Set(2, j, 1)
	}
	var out mat.Dense
	out.Mul(h, XY1)
	return &out
}

// helpers

func columnsToPoints(m mat.Matrix) []r2.Point {
	_, n := m.Dims()
	pts := make([]r2.Point, n)
	for j := range pts {
		pts[j] = r2.Point{X: m.At(0, j), Y: m.At(1, j)}
	}
	return pts
}

func countAbove(diag *mat.Dense, threshold float64) int {
	r, c := diag.Dims()
	count := 0
	for i := 0; i < r && i < c; i++ {
		if diag.At(i, i) > threshold {
			count++
		}
	}
	return count
}

// normalizePoints normalizes points as described in Multiple View Geometry, Alg 11.1.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense) {
	nPoints := len(pts)
	// compute centroid of points
	mu := r2.Point{}
	for _, pt := range pts {
		mu.X += pt.X
		mu.Y += pt.Y
	}
	mu = mu.Mul(1. / float64(nPoints))
	// compute scale factor
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	scale := 1.0
	if d > 0 {
		scale = math.Sqrt(2) / d
	}
	T := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, T
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U  *mat.Dense
	V  *mat.Dense
	VT *mat.Dense
	S  *mat.Dense
}

// performSVD performs SVD on inputMatrix and returns matrices U, Sigma and V from the decomposition.
func performSVD(inputMatrix mat.Matrix) *matsSVD {
	var svd mat.SVD
	ok := svd.Factorize(inputMatrix, mat.SVDFull)
	if !ok {
		return nil
	}

	u, v, sigma, vt := &mat.Dense{}, &mat.Dense{}, &mat.Dense{}, &mat.Dense{}

	svd.UTo(u)
	svd.VTo(v)
	vt.CloneFrom(v.T())

	singularValues := svd.Values(nil)
	sigma.CloneFrom(mat.NewDiagDense(len(singularValues), singularValues))

	return &matsSVD{u, v, vt, sigma}
}
