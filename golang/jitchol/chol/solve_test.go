package chol

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func TestSolveCholeskyVector(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	a := randomSPD(rng, 5)
	b := mat.NewVecDense(5, []float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()})

	factor, err := Cholesky(a)
	require.NoError(t, err)
	x, err := SolveCholeskyVec(factor, b)
	require.NoError(t, err)

	var ax mat.VecDense
	ax.MulVec(a, x)
	for i := 0; i < 5; i++ {
		assert.True(t, scalar.EqualWithinRel(b.AtVec(i), ax.AtVec(i), 1e-8), "row %d: %g != %g", i, ax.AtVec(i), b.AtVec(i))
	}
}

func TestSolveCholeskyMatchesDenseSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	a := randomSPD(rng, 7)
	b := randomDense(rng, 7, 3)

	var want mat.Dense
	require.NoError(t, want.Solve(a, b))

	factor, err := Cholesky(a)
	require.NoError(t, err)

	for lName, l := range layouts(factor.Dense()) {
		for bName, rhs := range layouts(b) {
			got, err := SolveCholesky(l, rhs)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(&want, got, 1e-10), "L as %s, B as %s", lName, bName)
		}
	}
}

func TestSolveCholeskyComposesTriangularSolves(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	factor, err := Cholesky(randomSPD(rng, 4))
	require.NoError(t, err)
	b := randomDense(rng, 4, 2)

	y, err := SolveTriangular(factor, b, false)
	require.NoError(t, err)
	want, err := SolveTriangular(factor, y, true)
	require.NoError(t, err)

	got, err := SolveCholesky(factor, b)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestCholeskyInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	for _, n := range []int{1, 3, 8} {
		a := randomSPD(rng, n)
		factor, err := Cholesky(a)
		require.NoError(t, err)

		got, err := CholeskyInverse(factor)
		require.NoError(t, err)

		var want mat.Dense
		require.NoError(t, want.Inverse(a))
		assert.True(t, mat.EqualApprox(&want, got, 1e-10), "n=%d", n)
		assert.True(t, mat.Equal(got, got.T()), "inverse is not symmetric")

		var product mat.Dense
		product.Mul(a, got)
		identity, err := AddDiagonal(mat.NewDense(n, n, nil), 1)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(identity, &product, 1e-10))
	}
}

func TestSolveAndInverseSingular(t *testing.T) {
	l := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		2, 0, 0,
		3, 0, 1,
	})

	_, err := SolveCholesky(l, mat.NewDense(3, 1, nil))
	assert.ErrorIs(t, err, ErrSingularTriangular)

	_, err = CholeskyInverse(l)
	assert.ErrorIs(t, err, ErrSingularTriangular)
}

func TestSolveCholeskyDimensionMismatch(t *testing.T) {
	factor, err := Cholesky(mat.NewDense(2, 2, []float64{2, 1, 1, 2}))
	require.NoError(t, err)

	_, err = SolveCholesky(factor, mat.NewDense(3, 1, nil))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = CholeskyInverse(mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
