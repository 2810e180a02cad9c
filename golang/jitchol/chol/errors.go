package chol

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDimensionMismatch indicates that the shapes of the arguments break the contract of an operation.
	ErrDimensionMismatch = errors.New("chol: dimension mismatch")
	// ErrNotPositiveDefinite indicates that no jitter level within the policy produced a factorization.
	ErrNotPositiveDefinite = errors.New("chol: matrix is not positive definite")
	// ErrSingularTriangular indicates a zero or numerically zero diagonal entry in a triangular factor.
	ErrSingularTriangular = errors.New("chol: triangular factor is singular")
	// ErrInvalidPolicy indicates a jitter policy that can not drive the retry loop.
	ErrInvalidPolicy = errors.New("chol: invalid jitter policy")
)

//NotPositiveDefiniteError is returned when the retry loop is exhausted.
//It keeps the full trace of attempts and matches ErrNotPositiveDefinite with errors.Is.
type NotPositiveDefiniteError struct {
	Dim      int
	Attempts []Attempt
}

func (e *NotPositiveDefiniteError) Error() string {
	lastJitter := 0.0
	if len(e.Attempts) > 0 {
		lastJitter = e.Attempts[len(e.Attempts)-1].Jitter
	}
	return fmt.Sprintf("%v: %d attempts failed, last jitter %g (dim %d)",
		ErrNotPositiveDefinite, len(e.Attempts), lastJitter, e.Dim)
}

//Is reports whether target is ErrNotPositiveDefinite.
func (e *NotPositiveDefiniteError) Is(target error) bool {
	return target == ErrNotPositiveDefinite
}

//TraceOf extracts the attempt trace from an error returned by a factorization, if there is one.
func TraceOf(err error) []Attempt {
	var npd *NotPositiveDefiniteError
	if errors.As(err, &npd) {
		return append([]Attempt(nil), npd.Attempts...)
	}
	return nil
}
