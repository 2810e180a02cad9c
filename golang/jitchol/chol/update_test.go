package chol

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

//partition splits a into the leading n×n block, the trailing cross block and the trailing diagonal block.
func partition(a *mat.Dense, n int) (a11, a21, a22 mat.Matrix) {
	size, _ := a.Dims()
	return a.Slice(0, n, 0, n), a.Slice(n, size, 0, n), a.Slice(n, size, n, size)
}

func TestCholeskyUpdateMatchesFullFactorization(t *testing.T) {
	rng := rand.New(rand.NewSource(30))
	for _, tt := range []struct{ size, split int }{{5, 3}, {6, 1}, {6, 5}, {12, 6}} {
		a := randomSPD(rng, tt.size)
		a11, a21, a22 := partition(a, tt.split)

		head, err := Cholesky(a11)
		require.NoError(t, err)
		grown, err := CholeskyUpdate(head, a21, a22)
		require.NoError(t, err)

		full, err := Cholesky(a)
		require.NoError(t, err)

		requireValidFactor(t, grown)
		assert.Equal(t, tt.size, grown.Dim())
		assert.True(t, mat.EqualApprox(full, grown, 1e-10), "size %d split %d", tt.size, tt.split)
	}
}

func TestCholeskyUpdateSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	x := randomDense(rng, 5, 5)
	var a mat.Dense
	a.Mul(x.T(), x)
	for i := 0; i < 5; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}
	b := randomDense(rng, 5, 2)

	a11, a21, a22 := partition(&a, 3)
	head, err := Cholesky(a11)
	require.NoError(t, err)
	cached, err := SolveTriangular(head, b.Slice(0, 3, 0, 2), false)
	require.NoError(t, err)

	grown, extended, err := CholeskyUpdateSolve(head, a21, a22, cached, b.Slice(3, 5, 0, 2))
	require.NoError(t, err)

	full, err := Cholesky(&a)
	require.NoError(t, err)
	want, err := SolveTriangular(full, b, false)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(full, grown, 1e-10))
	assert.True(t, mat.EqualApprox(want, extended, 1e-10))

	var lx mat.Dense
	lx.Mul(grown, extended)
	assert.True(t, mat.EqualApprox(b, &lx, 1e-10))
}

func TestCholeskyUpdateLeavesInputsUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	a := randomSPD(rng, 4)
	a11, a21, a22 := partition(a, 2)
	head, err := Cholesky(a11)
	require.NoError(t, err)
	before := head.Dense()

	grown, err := CholeskyUpdate(head, a21, a22)
	require.NoError(t, err)
	assert.NotSame(t, head, grown)
	assert.Equal(t, 2, head.Dim())
	assert.True(t, mat.Equal(before, head))
}

func TestCholeskyUpdateJittersSchurComplement(t *testing.T) {
	recorder := &Recorder{}
	factorizer := NewFactorizer(DefaultJitterPolicy, recorder)

	a := ones(5)
	a11, a21, a22 := partition(a, 1)
	head, err := factorizer.Cholesky(a11)
	require.NoError(t, err)
	require.Zero(t, recorder.Len())

	grown, err := factorizer.Update(head, a21, a22)
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.Len())
	assert.Greater(t, grown.Jitter(), 0.0)
	requireValidFactor(t, grown)
}

func TestCholeskyUpdateJitterFollowsGrownDiagonal(t *testing.T) {
	recorder := &Recorder{}
	factorizer := NewFactorizer(DefaultJitterPolicy, recorder)

	head, err := factorizer.Cholesky(mat.NewDense(1, 1, []float64{100}))
	require.NoError(t, err)
	// C - Sᵗ·S vanishes exactly, the grown diagonal is [100, 1]
	grown, err := factorizer.Update(head, mat.NewDense(1, 1, []float64{10}), mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)

	assert.Equal(t, DefaultJitterPolicy.Jitter(1, 50.5), grown.Jitter())
	assert.Equal(t, 1, recorder.Len())
	requireValidFactor(t, grown)
}

//duplicateRow returns the gram matrix of the rows of x followed by a copy of row k.
func duplicateRow(x *mat.Dense, k int) *mat.Dense {
	_, c := x.Dims()
	var extended mat.Dense
	extended.Stack(x, x.Slice(k, k+1, 0, c))
	var gram mat.Dense
	gram.Mul(&extended, extended.T())
	return &gram
}

func TestCholeskyUpdateDuplicateRow(t *testing.T) {
	rng := rand.New(rand.NewSource(35))
	for seed := 0; seed < 300; seed++ {
		x := randomDense(rng, 4, 4)
		full := duplicateRow(x, seed%4)
		a11, a21, a22 := partition(full, 4)

		factorizer := NewFactorizer(DefaultJitterPolicy, nil)
		head, err := factorizer.Cholesky(a11)
		require.NoError(t, err)

		_, err = factorizer.Cholesky(full)
		require.NoError(t, err, "seed %d", seed)

		grown, err := factorizer.Update(head, a21, a22)
		require.NoError(t, err, "seed %d", seed)
		requireValidFactor(t, grown)

		tol := 1e-8 + 2*(grown.Jitter()+head.Jitter())
		assert.True(t, mat.EqualApprox(full, reconstruct(grown), tol), "seed %d", seed)
	}
}

func TestGrowingSystemNearDuplicateObservations(t *testing.T) {
	rng := rand.New(rand.NewSource(36))
	features := randomDense(rng, 4, 8)
	observations := mat.NewDense(7, 8, nil)
	observations.Slice(0, 4, 0, 8).(*mat.Dense).Copy(features)
	for i := 0; i < 3; i++ {
		for j := 0; j < 8; j++ {
			observations.Set(4+i, j, features.At(i, j)+1e-12*rng.NormFloat64())
		}
	}
	var gram mat.Dense
	gram.Mul(observations, observations.T())
	y := randomDense(rng, 7, 1)

	recorder := &Recorder{}
	system, err := NewGrowingSystem(NewFactorizer(DefaultJitterPolicy, recorder), gram.Slice(0, 4, 0, 4), y.Slice(0, 4, 0, 1))
	require.NoError(t, err)
	for start := 4; start < 7; start++ {
		system, err = system.Extend(gram.Slice(start, start+1, 0, start), gram.Slice(start, start+1, start, start+1), y.Slice(start, start+1, 0, 1))
		require.NoError(t, err, "observation %d", start)
	}
	require.Equal(t, 7, system.Dim())
	requireValidFactor(t, system.Factor)

	tol := 1e-8 + 2*system.Factor.Jitter()
	assert.True(t, mat.EqualApprox(&gram, reconstruct(system.Factor), tol))

	solution, err := system.Solution()
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		assert.False(t, math.IsNaN(solution.At(i, 0)) || math.IsInf(solution.At(i, 0), 0), "entry %d", i)
	}
}

func TestCholeskyUpdateIndefiniteSchurComplement(t *testing.T) {
	a, err := AddDiagonal(ones(5), -0.5)
	require.NoError(t, err)
	a11, a21, a22 := partition(a, 1)

	factorizer := NewFactorizer(DefaultJitterPolicy, nil)
	head, err := factorizer.Cholesky(a11)
	require.NoError(t, err)

	grown, err := factorizer.Update(head, a21, a22)
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)
	assert.Len(t, TraceOf(err), DefaultJitterPolicy.MaxTries+1)
	assert.Nil(t, grown)
}

func TestCholeskyUpdateDimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	head, err := Cholesky(randomSPD(rng, 3))
	require.NoError(t, err)
	c := randomSPD(rng, 2)

	tests := []struct {
		name string
		run  func() error
	}{
		{"nil factor", func() error { _, err := CholeskyUpdate(nil, mat.NewDense(2, 3, nil), c); return err }},
		{"cross block rows", func() error { _, err := CholeskyUpdate(head, mat.NewDense(3, 3, nil), c); return err }},
		{"cross block cols", func() error { _, err := CholeskyUpdate(head, mat.NewDense(2, 2, nil), c); return err }},
		{"non-square diagonal block", func() error {
			_, err := CholeskyUpdate(head, mat.NewDense(2, 3, nil), mat.NewDense(2, 3, nil))
			return err
		}},
		{"missing right-hand side", func() error {
			_, _, err := CholeskyUpdateSolve(head, mat.NewDense(2, 3, nil), c, mat.NewDense(3, 1, nil), nil)
			return err
		}},
		{"cached solution rows", func() error {
			_, _, err := CholeskyUpdateSolve(head, mat.NewDense(2, 3, nil), c, mat.NewDense(2, 1, nil), mat.NewDense(2, 1, nil))
			return err
		}},
		{"column count", func() error {
			_, _, err := CholeskyUpdateSolve(head, mat.NewDense(2, 3, nil), c, mat.NewDense(3, 2, nil), mat.NewDense(2, 1, nil))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), ErrDimensionMismatch)
		})
	}
}

func TestGrowingSystem(t *testing.T) {
	rng := rand.New(rand.NewSource(34))
	a := randomSPD(rng, 9)
	y := randomDense(rng, 9, 1)

	system, err := NewGrowingSystem(nil, a.Slice(0, 3, 0, 3), y.Slice(0, 3, 0, 1))
	require.NoError(t, err)
	for start := 3; start < 9; start += 3 {
		end := start + 3
		next, err := system.Extend(a.Slice(start, end, 0, start), a.Slice(start, end, start, end), y.Slice(start, end, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, start, system.Dim())
		system = next
	}
	require.Equal(t, 9, system.Dim())

	got, err := system.Solution()
	require.NoError(t, err)
	var want mat.Dense
	require.NoError(t, want.Solve(a, y))
	assert.True(t, mat.EqualApprox(&want, got, 1e-10))
}
