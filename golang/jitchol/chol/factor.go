package chol

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

//Factor is a lower triangular Cholesky factor L with a strictly positive diagonal.
//A Factor is never modified once it is returned: operations that grow a factor build a new one.
//Factor implements mat.Triangular, so it can be passed to gonum and to every solver of this package.
type Factor struct {
	tri      blas64.Triangular // lower, non-unit, stride == N, zero strict upper part
	jitter   float64
	attempts []Attempt
}

var _ mat.Triangular = (*Factor)(nil)

//NewFactor validates an externally computed lower triangular factor and wraps a copy of it.
//The strict upper triangle of l is ignored. Columns with a negative diagonal entry are negated,
//which leaves L·Lᵗ unchanged, so the diagonal of the result is strictly positive.
func NewFactor(l mat.Matrix) (*Factor, error) {
	t, err := lowerTriangle(l)
	if err != nil {
		return nil, err
	}
	if _, ok := l.(*Factor); ok {
		t = cloneTriangular(t)
	}
	if err := checkPivots(t); err != nil {
		return nil, err
	}
	for j := 0; j < t.N; j++ {
		if t.Data[j*t.Stride+j] > 0 {
			continue
		}
		for i := j; i < t.N; i++ {
			t.Data[i*t.Stride+j] = -t.Data[i*t.Stride+j]
		}
	}
	return &Factor{tri: t}, nil
}

//newFactorFromRaw takes ownership of the output of a factorization routine.
func newFactorFromRaw(t blas64.Triangular, jitter float64, attempts []Attempt) *Factor {
	for i := 0; i < t.N; i++ {
		for j := i + 1; j < t.N; j++ {
			t.Data[i*t.Stride+j] = 0
		}
	}
	t.Uplo = blas.Lower
	t.Diag = blas.NonUnit
	return &Factor{tri: t, jitter: jitter, attempts: attempts}
}

func cloneTriangular(t blas64.Triangular) blas64.Triangular {
	data := make([]float64, t.N*t.N)
	for i := 0; i < t.N; i++ {
		copy(data[i*t.N:i*t.N+i+1], t.Data[i*t.Stride:i*t.Stride+i+1])
	}
	return blasLower(t.N, data)
}

func blasLower(n int, data []float64) blas64.Triangular {
	return blas64.Triangular{Uplo: blas.Lower, Diag: blas.NonUnit, N: n, Stride: n, Data: data}
}

//Dim returns the order of the factor.
func (f *Factor) Dim() int {
	return f.tri.N
}

func (f *Factor) Dims() (r, c int) {
	return f.tri.N, f.tri.N
}

func (f *Factor) At(i, j int) float64 {
	if uint(i) >= uint(f.tri.N) || uint(j) >= uint(f.tri.N) {
		panic(mat.ErrIndexOutOfRange)
	}
	if j > i {
		return 0
	}
	return f.tri.Data[i*f.tri.Stride+j]
}

func (f *Factor) T() mat.Matrix {
	return mat.TransposeTri{Triangular: f}
}

func (f *Factor) Triangle() (n int, kind mat.TriKind) {
	return f.tri.N, mat.Lower
}

func (f *Factor) TTri() mat.Triangular {
	return mat.TransposeTri{Triangular: f}
}

//Jitter returns the largest diagonal perturbation folded into the factor, zero for an exact factorization.
func (f *Factor) Jitter() float64 {
	return f.jitter
}

//Attempts returns the retry trace of the factorization that produced the last diagonal block.
//Factors built with NewFactor have no trace.
func (f *Factor) Attempts() []Attempt {
	return append([]Attempt(nil), f.attempts...)
}

//L returns a copy of the factor as a gonum triangular matrix.
func (f *Factor) L() *mat.TriDense {
	return mat.NewTriDense(f.tri.N, mat.Lower, cloneTriangular(f.tri).Data)
}

//Dense returns a copy of the factor as a general dense matrix.
func (f *Factor) Dense() *mat.Dense {
	return mat.NewDense(f.tri.N, f.tri.N, cloneTriangular(f.tri).Data)
}

//LogDet returns the logarithm of the determinant of L·Lᵗ.
func (f *Factor) LogDet() float64 {
	s := 0.0
	for i := 0; i < f.tri.N; i++ {
		s += math.Log(f.tri.Data[i*f.tri.Stride+i])
	}
	return 2 * s
}
