package chol

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//CholeskyUpdate grows a factor with DefaultFactorizer, see Factorizer.Update.
func CholeskyUpdate(l *Factor, b, c mat.Matrix) (*Factor, error) {
	return DefaultFactorizer.Update(l, b, c)
}

//CholeskyUpdateSolve grows a factor and a cached solution with DefaultFactorizer, see Factorizer.UpdateSolve.
func CholeskyUpdateSolve(l *Factor, b, c, a, y mat.Matrix) (*Factor, *mat.Dense, error) {
	return DefaultFactorizer.UpdateSolve(l, b, c, a, y)
}

//Update returns the factor of the symmetric matrix [[A, Bᵗ], [B, C]] given the factor l of A,
//the m×n cross block b and the m×m diagonal block c. The A block is not factored again:
//
//	S  = L⁻¹·Bᵗ
//	R  = chol(C - Sᵗ·S)
//	L' = [[L, 0], [Sᵗ, R]]
//
//The Schur complement goes through the same jitter policy as Cholesky, with the jitter and the
//zero pivot threshold taken from the diagonal of the whole grown matrix, as Cholesky of that
//matrix would. A new row that repeats an old one leaves only rounding noise in C - Sᵗ·S.
func (f *Factorizer) Update(l *Factor, b, c mat.Matrix) (*Factor, error) {
	grown, _, err := f.update(l, b, c, nil, nil)
	return grown, err
}

//UpdateSolve is Update that also extends a cached solution a of L·a = y_old (n×k) with the
//new right-hand side rows y (m×k). The result a' satisfies L'·a' = [y_old; y].
func (f *Factorizer) UpdateSolve(l *Factor, b, c, a, y mat.Matrix) (*Factor, *mat.Dense, error) {
	if a == nil || y == nil {
		return nil, nil, errors.Wrap(ErrDimensionMismatch, "cached solution and new right-hand side are both required")
	}
	return f.update(l, b, c, a, y)
}

func (f *Factorizer) update(l *Factor, b, c, a, y mat.Matrix) (*Factor, *mat.Dense, error) {
	if err := f.Policy.Validate(); err != nil {
		return nil, nil, err
	}
	if l == nil {
		return nil, nil, errors.Wrap(ErrDimensionMismatch, "nil factor")
	}
	n := l.Dim()
	m, err := squareDim(c)
	if err != nil {
		return nil, nil, errors.Wrap(err, "new diagonal block")
	}
	if br, bc := b.Dims(); br != m || bc != n {
		return nil, nil, errors.Wrapf(ErrDimensionMismatch, "cross block is %dx%d, want %dx%d", br, bc, m, n)
	}
	if a != nil {
		ar, ac := a.Dims()
		yr, yc := y.Dims()
		if ar != n || yr != m || ac != yc || ac == 0 {
			return nil, nil, errors.Wrapf(ErrDimensionMismatch,
				"cached solution is %dx%d and new right-hand side is %dx%d, want %dxk and %dxk", ar, ac, yr, yc, n, m)
		}
	}

	s := mat.DenseCopyOf(b.T())
	solveInPlace(l.tri, s, false)

	var sts mat.Dense
	sts.Mul(s.T(), s)
	schur := mat.DenseCopyOf(c)
	schur.Sub(schur, &sts)

	scale, pivotTol := diagonalScale(grownDiagonal(l, c))
	r, err := f.factorize(schur, scale, pivotTol)
	if err != nil {
		return nil, nil, errors.Wrap(err, "schur complement")
	}
	grown := assemble(l, s, r)
	if a == nil {
		return grown, nil, nil
	}

	var sta mat.Dense
	sta.Mul(s.T(), a)
	tail := mat.DenseCopyOf(y)
	tail.Sub(tail, &sta)
	solveInPlace(r.tri, tail, false)

	var extended mat.Dense
	extended.Stack(a, tail)
	return grown, &extended, nil
}

//grownDiagonal returns the diagonal of [[L·Lᵗ, Bᵗ], [B, C]].
func grownDiagonal(l *Factor, c mat.Matrix) []float64 {
	n, m := l.Dim(), Height(c)
	diag := make([]float64, n+m)
	for i := 0; i < n; i++ {
		row := l.tri.Data[i*l.tri.Stride : i*l.tri.Stride+i+1]
		for _, v := range row {
			diag[i] += v * v
		}
	}
	for i := 0; i < m; i++ {
		diag[n+i] = c.At(i, i)
	}
	return diag
}

//assemble builds [[L, 0], [Sᵗ, R]].
func assemble(l *Factor, s *mat.Dense, r *Factor) *Factor {
	n, m := l.Dim(), r.Dim()
	size := n + m
	grown := mat.NewDense(size, size, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			grown.Set(i, j, l.At(i, j))
		}
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			grown.Set(n+i, j, s.At(j, i))
		}
		for j := 0; j <= i; j++ {
			grown.Set(n+i, n+j, r.At(i, j))
		}
	}

	jitter := l.jitter
	if r.jitter > jitter {
		jitter = r.jitter
	}
	raw := grown.RawMatrix()
	return &Factor{
		tri:      blasLower(size, raw.Data),
		jitter:   jitter,
		attempts: r.Attempts(),
	}
}
