package chol

import (
	"gonum.org/v1/gonum/mat"
)

//SolveCholesky solves A·X = B for A = L·Lᵗ with a forward and a back substitution.
func SolveCholesky(l, b mat.Matrix) (*mat.Dense, error) {
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
	solveInPlace(t, x, false)
	solveInPlace(t, x, true)
	return x, nil
}

//SolveCholeskyVec is SolveCholesky for a single right-hand side.
func SolveCholeskyVec(l mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	x, err := SolveCholesky(l, b)
	if err != nil {
		return nil, err
	}
	return mat.VecDenseCopyOf(x.ColView(0)), nil
}

//CholeskyInverse returns the inverse of A = L·Lᵗ by applying both substitutions to the identity.
func CholeskyInverse(l mat.Matrix) (*mat.Dense, error) {
	t, err := lowerTriangle(l)
	if err != nil {
		return nil, err
	}
	if err := checkPivots(t); err != nil {
		return nil, err
	}
	inv, err := AddDiagonalInPlace(mat.NewDense(t.N, t.N, nil), 1)
	if err != nil {
		return nil, err
	}
	solveInPlace(t, inv, false)
	solveInPlace(t, inv, true)
	symmetrize(inv)
	return inv, nil
}
