// Package transform contains the pinhole camera model and the planar two view geometry used to
// recover a camera pose from image observations.
package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// skewTolerance is the largest K[0][1] accepted as a zero skew camera.
const skewTolerance = 1e-9

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
// Width and Height are optional and left at zero when the image size is unknown.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px,omitempty"`
	Height int     `json:"height_px,omitempty"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width < 0 || params.Height < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromMatrix reads fx, fy, ppx and ppy out of a 3x3 camera matrix. The
// matrix must have zero skew and a last row of [0 0 1].
func NewPinholeCameraIntrinsicsFromMatrix(k mat.Matrix) (*PinholeCameraIntrinsics, error) {
	if r, c := k.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("camera matrix must be 3x3, got %dx%d", r, c)
	}
	if math.Abs(k.At(0, 1)) > skewTolerance || k.At(1, 0) != 0 || k.At(2, 0) != 0 || k.At(2, 1) != 0 || k.At(2, 2) != 1 {
		return nil, errors.Errorf("camera matrix is not a zero skew pinhole matrix: %v", mat.Formatted(k, mat.Squeeze()))
	}
	params := &PinholeCameraIntrinsics{
		Fx:  k.At(0, 0),
		Fy:  k.At(1, 1),
		Ppx: k.At(0, 2),
		Ppy: k.At(1, 2),
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics, nil
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// PixelToPoint transforms a pixel with depth to a 3D point in the camera frame.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return 0, 0, 0
	}
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// PointToPixel projects a 3D point in the camera frame to sub-pixel image coordinates. A point at
// zero depth yields ±Inf or NaN.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	return (x/z)*params.Fx + params.Ppx, (y/z)*params.Fy + params.Ppy
}

// Project maps points given in the camera frame (3xN, or 4xN homogeneous with the last row
// ignored) through the 3x3 camera matrix k and returns the 2xN pixel coordinates after
// perspective division. Depth is not checked: points at zero depth produce ±Inf or NaN and points
// behind the camera project with flipped coordinates.
func Project(k, points mat.Matrix) *mat.Dense {
	rows, n := points.Dims()
	if rows != 3 && rows != 4 {
		panic(fmt.Sprintf("transform: points must be 3xN or 4xN, got %dx%d", rows, n))
	}
	uv := mat.NewDense(2, n, nil)
	for j := 0; j < n; j++ {
		x, y, z := points.At(0, j), points.At(1, j), points.At(2, j)
		u := k.At(0, 0)*x + k.At(0, 1)*y + k.At(0, 2)*z
		v := k.At(1, 0)*x + k.At(1, 1)*y + k.At(1, 2)*z
		w := k.At(2, 0)*x + k.At(2, 1)*y + k.At(2, 2)*z
		uv.Set(0, j, u/w)
		uv.Set(1, j, v/w)
	}
	return uv
}

// NormalizePixels maps 2xN pixel coordinates into normalized image coordinates (K⁻¹·[u v 1]ᵀ
// divided by its last element).
func NormalizePixels(k, uv mat.Matrix) (*mat.Dense, error) {
	rows, n := uv.Dims()
	if rows != 2 {
		return nil, errors.Errorf("pixels must be 2xN, got %dx%d", rows, n)
	}
	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, errors.Wrap(err, "camera matrix is not invertible")
	}
	xy := mat.NewDense(2, n, nil)
	for j := 0; j < n; j++ {
		u, v := uv.At(0, j), uv.At(1, j)
		x := kInv.At(0, 0)*u + kInv.At(0, 1)*v + kInv.At(0, 2)
		y := kInv.At(1, 0)*u + kInv.At(1, 1)*v + kInv.At(1, 2)
		w := kInv.At(2, 0)*u + kInv.At(2, 1)*v + kInv.At(2, 2)
		xy.Set(0, j, x/w)
		xy.Set(1, j, y/w)
	}
	return xy, nil
}

// Unproject back-projects 2xN pixel coordinates with known depths into 3xN camera frame points.
// It is the inverse of Project for points in front of the camera.
func Unproject(k, uv mat.Matrix, depths []float64) (*mat.Dense, error) {
	_, n := uv.Dims()
	if len(depths) != n {
		return nil, errors.Errorf("got %d depths for %d pixels", len(depths), n)
	}
	xy, err := NormalizePixels(k, uv)
	if err != nil {
		return nil, err
	}
	points := mat.NewDense(3, n, nil)
	for j, z := range depths {
		points.Set(0, j, xy.At(0, j)*z)
		points.Set(1, j, xy.At(1, j)*z)
		points.Set(2, j, z)
	}
	return points, nil
}
