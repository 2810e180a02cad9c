package chol

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//ReadNpy reads a one or two dimensional float64 npy file. A vector of length n becomes an n×1 matrix.
//Arrays stored in Fortran order are copied into the row-major layout of mat.Dense.
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	m, err := DecodeNpy(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", fileName)
	}
	return m, nil
}

//DecodeNpy decodes an npy stream, see ReadNpy.
func DecodeNpy(src io.Reader) (*mat.Dense, error) {
	r, err := npyio.NewReader(src)
	if err != nil {
		return nil, err
	}

	shape := r.Header.Descr.Shape
	var rows, cols int
	switch len(shape) {
	case 1:
		rows, cols = shape[0], 1
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, errors.Wrapf(ErrDimensionMismatch, "npy array of shape %v is not a matrix", shape)
	}
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(ErrDimensionMismatch, "npy array of shape %v is empty", shape)
	}

	var data []float64
	if err := r.Read(&data); err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, errors.Wrapf(ErrDimensionMismatch, "npy array of shape %v holds %d values", shape, len(data))
	}

	if r.Header.Descr.Fortran && cols > 1 {
		return FromTensor(ColumnMajorTensor(rows, cols, data))
	}
	return mat.NewDense(rows, cols, data), nil
}

//WriteNpy stores a matrix in an npy file.
func WriteNpy(fileName string, m mat.Matrix) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return err
	}
	if err := npyio.Write(dst, mat.DenseCopyOf(m)); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, "write %s", fileName)
	}
	return dst.Close()
}
