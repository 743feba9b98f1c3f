package testutils

import (
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rigfit/utils/matrix"
)

// WriteMatrixFile writes m as a text table named name inside dir and fails the test if it cannot.
// It returns the full path of the file.
func WriteMatrixFile(t *testing.T, dir, name string, m mat.Matrix) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, matrix.WriteFile(path, m), test.ShouldBeNil)
	return path
}
