// Package matrix reads and writes the plain whitespace separated numeric tables the rig inputs are
// stored in, and samples noise for synthetic data.
package matrix

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ReadText parses a table of numbers, one row per line. Values may be separated by whitespace or
// commas; blank lines and lines starting with '#' are skipped. Every row must have the same number
// of values.
func ReadText(r io.Reader) (*mat.Dense, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var data []float64
	cols := -1
	rows := 0
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(c rune) bool {
			return unicode.IsSpace(c) || c == ','
		})
		if cols == -1 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, errors.Errorf("line %d has %d values, expected %d", lineNum, len(fields), cols)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNum)
			}
			data = append(data, v)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading matrix text")
	}
	if rows == 0 {
		return nil, errors.New("no numeric data found")
	}
	return mat.NewDense(rows, cols, data), nil
}

// ReadFile reads a numeric table from the file at path.
func ReadFile(path string) (*mat.Dense, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening matrix file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	m, err := ReadText(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing %q", path)
	}
	return m, nil
}

// WriteText writes m one row per line with space separated values.
func WriteText(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	bw := bufio.NewWriter(w)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(formatValue(m.At(i, j))); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes m to path, replacing any existing file.
func WriteFile(path string, m mat.Matrix) error {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating matrix file")
	}
	if err := WriteText(f, m); err != nil {
		utils.UncheckedError(f.Close())
		return errors.Wrapf(err, "error writing %q", path)
	}
	return f.Close()
}

// WriteVectorFile writes values one per line.
func WriteVectorFile(path string, values []float64) error {
	if len(values) == 0 {
		return errors.New("cannot write an empty vector")
	}
	return WriteFile(path, mat.NewDense(len(values), 1, values))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'e', 18, 64)
}
