package chol

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

//Outcome is the state an attempt of the retry loop ends in.
type Outcome int

const (
	Success Outcome = iota
	Retry
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Failed:
		return "failed"
	}
	return "unknown"
}

//Attempt describes one pass of the retry loop. Index 0 is the factorization without jitter.
type Attempt struct {
	Index   int
	Jitter  float64
	Outcome Outcome
}

//JitterPolicy bounds the retry loop. Attempt k >= 1 adds Initial·scale·Growth^(k-1) to the
//diagonal, where scale is the mean absolute diagonal entry of the input (one if it is zero).
type JitterPolicy struct {
	MaxTries int     `json:"max_tries"`
	Initial  float64 `json:"initial_jitter"`
	Growth   float64 `json:"jitter_growth"`
}

//DefaultJitterPolicy tries ten jitter levels from 1e-10 to 1e-1 relative to the diagonal.
var DefaultJitterPolicy = JitterPolicy{MaxTries: 10, Initial: 1e-10, Growth: 10}

//Validate checks that the policy describes a finite increasing schedule.
func (p JitterPolicy) Validate() error {
	if p.MaxTries < 0 {
		return errors.Wrapf(ErrInvalidPolicy, "max tries %d is negative", p.MaxTries)
	}
	if !(p.Initial > 0) || math.IsInf(p.Initial, 0) {
		return errors.Wrapf(ErrInvalidPolicy, "initial jitter %g is not positive", p.Initial)
	}
	if !(p.Growth > 1) || math.IsInf(p.Growth, 0) {
		return errors.Wrapf(ErrInvalidPolicy, "jitter growth %g is not above one", p.Growth)
	}
	return nil
}

//Jitter returns the diagonal perturbation used by attempt k for a matrix with the given diagonal scale.
func (p JitterPolicy) Jitter(k int, scale float64) float64 {
	if k <= 0 {
		return 0
	}
	return p.Initial * scale * math.Pow(p.Growth, float64(k-1))
}

//Factorizer computes Cholesky factors with a bounded jitter retry and reports jitter to Sink.
//A Factorizer holds no state besides its configuration and may be shared between goroutines.
type Factorizer struct {
	Policy JitterPolicy
	Sink   WarningSink
}

//DefaultFactorizer is used by the package level functions.
var DefaultFactorizer = &Factorizer{Policy: DefaultJitterPolicy, Sink: LogSink{}}

//NewFactorizer creates a factorizer. A nil sink drops warnings.
func NewFactorizer(policy JitterPolicy, sink WarningSink) *Factorizer {
	return &Factorizer{Policy: policy, Sink: sink}
}

//Cholesky factors a symmetric matrix with DefaultFactorizer.
func Cholesky(a mat.Matrix) (*Factor, error) {
	return DefaultFactorizer.Cholesky(a)
}

//Cholesky returns L with L·Lᵗ = A + jitter·I. Only the lower triangle of a is read.
//The plain factorization is tried first; while a pivot is non-positive or numerically zero the
//factorization is repeated with growing jitter, at most Policy.MaxTries times.
func (f *Factorizer) Cholesky(a mat.Matrix) (*Factor, error) {
	if err := f.Policy.Validate(); err != nil {
		return nil, err
	}
	n, err := squareDim(a)
	if err != nil {
		return nil, err
	}

	base := mat.DenseCopyOf(a)
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = base.At(i, i)
	}
	scale, pivotTol := diagonalScale(diag)
	return f.factorize(base, scale, pivotTol)
}

//factorize runs the retry loop on base, which it does not modify. Jitter is relative to scale and a
//squared pivot not above pivotTol counts as zero.
func (f *Factorizer) factorize(base *mat.Dense, scale, pivotTol float64) (*Factor, error) {
	n, _ := base.Dims()
	trial := mat.NewDense(n, n, nil)
	attempts := make([]Attempt, 0, 1)

	for k := 0; k <= f.Policy.MaxTries; k++ {
		jitter := f.Policy.Jitter(k, scale)
		trial.Copy(base)
		if k > 0 {
			if _, err := AddDiagonalInPlace(trial, jitter); err != nil {
				return nil, err
			}
			f.warn(StabilityWarning{Attempt: k, MaxTries: f.Policy.MaxTries, Jitter: jitter, Dim: n})
		}

		raw := trial.RawMatrix()
		t, ok := lapack64.Potrf(blas64.Symmetric{Uplo: blas.Lower, N: n, Stride: raw.Stride, Data: raw.Data})
		if ok && pivotsResolved(t, pivotTol) {
			attempts = append(attempts, Attempt{Index: k, Jitter: jitter, Outcome: Success})
			// the factor takes over the buffer of this attempt
			return newFactorFromRaw(t, jitter, attempts), nil
		}

		outcome := Retry
		if k == f.Policy.MaxTries {
			outcome = Failed
		}
		attempts = append(attempts, Attempt{Index: k, Jitter: jitter, Outcome: outcome})
	}

	return nil, &NotPositiveDefiniteError{Dim: n, Attempts: attempts}
}

func (f *Factorizer) warn(w StabilityWarning) {
	if f.Sink != nil {
		f.Sink.Warn(w)
	}
}

//diagonalScale returns the mean absolute diagonal entry (one when it vanishes) and the
//threshold under which a squared pivot is treated as zero.
func diagonalScale(diag []float64) (scale, pivotTol float64) {
	maxAbs := 0.0
	for _, v := range diag {
		d := math.Abs(v)
		scale += d
		if d > maxAbs {
			maxAbs = d
		}
	}
	n := float64(len(diag))
	scale /= n
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	return scale, n * machineEpsilon * maxAbs
}

func pivotsResolved(t blas64.Triangular, pivotTol float64) bool {
	for i := 0; i < t.N; i++ {
		d := t.Data[i*t.Stride+i]
		if !(d*d > pivotTol) || math.IsInf(d, 0) {
			return false
		}
	}
	return true
}
