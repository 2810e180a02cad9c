package chol

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//AddDiagonal returns a new matrix equal to a + value·I. The argument is not modified.
func AddDiagonal(a mat.Matrix, value float64) (*mat.Dense, error) {
	n, err := squareDim(a)
	if err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(a)
	addDiagonal(out, n, value)
	return out, nil
}

//AddDiagonalInPlace adds value to every diagonal entry of a and returns a itself.
func AddDiagonalInPlace(a *mat.Dense, value float64) (*mat.Dense, error) {
	if a == nil {
		return nil, errors.Wrap(ErrDimensionMismatch, "nil matrix")
	}
	n, err := squareDim(a)
	if err != nil {
		return nil, err
	}
	addDiagonal(a, n, value)
	return a, nil
}

func addDiagonal(a *mat.Dense, n int, value float64) {
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+value)
	}
}
