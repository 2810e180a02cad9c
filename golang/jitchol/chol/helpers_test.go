package chol

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

//randomSPD returns XᵗX + n·I for a random n×n matrix X.
func randomSPD(rng *rand.Rand, n int) *mat.Dense {
	x := randomDense(rng, n, n)
	var a mat.Dense
	a.Mul(x.T(), x)
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+float64(n))
	}
	return &a
}

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(r, c, data)
}

func ones(n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 1
	}
	return mat.NewDense(n, n, data)
}

//requireValidFactor checks that l is lower triangular with a strictly positive diagonal.
func requireValidFactor(t *testing.T, l mat.Matrix) {
	t.Helper()
	n, c := l.Dims()
	require.Equal(t, n, c)
	for i := 0; i < n; i++ {
		require.Greater(t, l.At(i, i), 0.0, "diagonal entry %d", i)
		for j := i + 1; j < n; j++ {
			require.Zero(t, l.At(i, j), "upper entry (%d,%d)", i, j)
		}
	}
}

//reconstruct computes L·Lᵗ.
func reconstruct(l mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(l, l.T())
	return &out
}

//layouts returns the same matrix in every storage this package accepts.
func layouts(m *mat.Dense) map[string]mat.Matrix {
	var transposed mat.Dense
	transposed.CloneFrom(m.T())
	colMajor, err := NewTensorMatrix(ToTensor(m, true))
	if err != nil {
		panic(err)
	}
	rowMajor, err := NewTensorMatrix(ToTensor(m, false))
	if err != nil {
		panic(err)
	}
	return map[string]mat.Matrix{
		"dense":               m,
		"transpose view":      mat.Transpose{Matrix: &transposed},
		"column-major tensor": colMajor,
		"row-major tensor":    rowMajor,
	}
}
