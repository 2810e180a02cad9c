package chol

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

//lowerTriangle returns the lower triangle of l in a contiguous row-major layout.
//The strict upper part of l is never read.
func lowerTriangle(l mat.Matrix) (blas64.Triangular, error) {
	if f, ok := l.(*Factor); ok {
		return f.tri, nil
	}
	n, err := squareDim(l)
	if err != nil {
		return blas64.Triangular{}, err
	}
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			data[i*n+j] = l.At(i, j)
		}
	}
	return blasLower(n, data), nil
}

//checkPivots rejects a factor whose diagonal holds a zero, a NaN, or a value
//indistinguishable from zero at the scale of the largest diagonal entry.
func checkPivots(t blas64.Triangular) error {
	maxAbs := 0.0
	for i := 0; i < t.N; i++ {
		if d := math.Abs(t.Data[i*t.Stride+i]); d > maxAbs {
			maxAbs = d
		}
	}
	tol := float64(t.N) * machineEpsilon * maxAbs
	for i := 0; i < t.N; i++ {
		d := t.Data[i*t.Stride+i]
		if math.IsNaN(d) || math.Abs(d) <= tol {
			return errors.Wrapf(ErrSingularTriangular, "diagonal entry %d is %g", i, d)
		}
	}
	return nil
}

//solveInPlace overwrites x with L⁻¹x, or with L⁻ᵗx when transpose is set.
func solveInPlace(t blas64.Triangular, x *mat.Dense, transpose bool) {
	tA := blas.NoTrans
	if transpose {
		tA = blas.Trans
	}
	blas64.Trsm(blas.Left, tA, 1, t, x.RawMatrix())
}

//SolveTriangular solves L·X = B, or Lᵗ·X = B when transpose is set, by forward or back substitution.
//Only the lower triangle of l is referenced. Every column of b is solved independently and
//the columns of the result keep the order of b.
func SolveTriangular(l, b mat.Matrix, transpose bool) (*mat.Dense, error) {
	t, err := lowerTriangle(l)
	if err != nil {
		return nil, err
	}
	x, err := rhsCopy(b, t.N)
	if err != nil {
		return nil, err
	}
	if err := checkPivots(t); err != nil {
		return nil, err
	}
	solveInPlace(t, x, transpose)
	return x, nil
}

//SolveTriangularVec is SolveTriangular for a single right-hand side.
func SolveTriangularVec(l mat.Matrix, b mat.Vector, transpose bool) (*mat.VecDense, error) {
	x, err := SolveTriangular(l, b, transpose)
	if err != nil {
		return nil, err
	}
	return mat.VecDenseCopyOf(x.ColView(0)), nil
}
