package chol

import (
	"log"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// machineEpsilon is the spacing of float64 values around one.
const machineEpsilon = 0x1p-52

//HandleError stops the program when err is not nil.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//Height returns the number of rows of a matrix.
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//squareDim returns the order of a non-empty square matrix.
func squareDim(m mat.Matrix) (int, error) {
	r, c := m.Dims()
	if r != c || r == 0 {
		return 0, errors.Wrapf(ErrDimensionMismatch, "expected a non-empty square matrix, got %dx%d", r, c)
	}
	return r, nil
}

//rhsCopy copies right-hand sides into a fresh row-major matrix with n rows.
func rhsCopy(b mat.Matrix, n int) (*mat.Dense, error) {
	r, c := b.Dims()
	if r != n || c == 0 {
		return nil, errors.Wrapf(ErrDimensionMismatch, "right-hand side is %dx%d, factor is %dx%d", r, c, n, n)
	}
	return mat.DenseCopyOf(b), nil
}

//symmetrize replaces m with (m + mᵗ)/2.
func symmetrize(m *mat.Dense) {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			v := (m.At(i, j) + m.At(j, i)) / 2
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
}
