// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"io"
	"log"
	"sync"
	"unsafe"

	"github.com/tarstars/jitchol/golang/jitchol/chol"
	"gonum.org/v1/gonum/mat"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	factors           = make(map[uint64]*chol.Factor)

	failureMu   sync.Mutex
	lastFailure failure

	warnings = &chol.Recorder{}

	logSilenceOnce sync.Once
)

//failure is the error of the last bridge call together with its kind, see failureKind.
type failure struct {
	message string
	kind    C.int
}

//failureKind maps the package errors onto the codes returned by GetLastErrorKind.
func failureKind(err error) C.int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, chol.ErrDimensionMismatch):
		return 1
	case errors.Is(err, chol.ErrNotPositiveDefinite):
		return 2
	case errors.Is(err, chol.ErrSingularTriangular):
		return 3
	case errors.Is(err, chol.ErrInvalidPolicy):
		return 4
	}
	return 5
}

func recordFailure(err error) {
	failureMu.Lock()
	defer failureMu.Unlock()
	lastFailure = failure{kind: failureKind(err)}
	if err != nil {
		lastFailure.message = err.Error()
	}
}

func currentFailure() failure {
	failureMu.Lock()
	defer failureMu.Unlock()
	return lastFailure
}

func storeFactor(f *chol.Factor) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	factors[handle] = f
	nextHandle++
	return handle
}

func fetchFactor(handle uint64) (*chol.Factor, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	factor, ok := factors[handle]
	if !ok {
		return nil, errors.New("invalid factor handle")
	}
	return factor, nil
}

func factorizer(maxTries C.int, initialJitter, jitterGrowth C.double) *chol.Factorizer {
	logSilenceOnce.Do(func() {
		log.SetOutput(io.Discard)
	})
	policy := chol.DefaultJitterPolicy
	if maxTries >= 0 {
		policy.MaxTries = int(maxTries)
	}
	if initialJitter > 0 {
		policy.Initial = float64(initialJitter)
	}
	if jitterGrowth > 0 {
		policy.Growth = float64(jitterGrowth)
	}
	return chol.NewFactorizer(policy, warnings)
}

//export FreeFactor
func FreeFactor(handle C.ulonglong) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(factors, uint64(handle))
}

//doubles views length C doubles starting at ptr.
func doubles(ptr *C.double, length int) ([]float64, error) {
	if ptr == nil {
		return nil, errors.New("null pointer for a matrix")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length), nil
}

//buildDense copies a rows×cols C array into a matrix. With fortran set the array holds the matrix column by column.
func buildDense(ptr *C.double, rows, cols C.int, fortran C.int) (*mat.Dense, error) {
	r, c := int(rows), int(cols)
	if r <= 0 || c <= 0 {
		return nil, errors.New("invalid matrix dimensions")
	}
	src, err := doubles(ptr, r*c)
	if err != nil {
		return nil, err
	}
	data := append([]float64(nil), src...)
	if fortran != 0 {
		return chol.FromTensor(chol.ColumnMajorTensor(r, c, data))
	}
	return mat.NewDense(r, c, data), nil
}

//writeDense copies a matrix into a C array in row-major order.
func writeDense(m mat.Matrix, ptr *C.double) error {
	r, c := m.Dims()
	out, err := doubles(ptr, r*c)
	if err != nil {
		return err
	}
	copy(out, mat.DenseCopyOf(m).RawMatrix().Data)
	return nil
}

//export Factorize
func Factorize(
	matrixPtr *C.double,
	n C.int,
	fortran C.int,
	maxTries C.int,
	initialJitter C.double,
	jitterGrowth C.double,
) C.ulonglong {
	recordFailure(nil)

	a, err := buildDense(matrixPtr, n, n, fortran)
	if err != nil {
		recordFailure(err)
		return 0
	}

	factor, err := factorizer(maxTries, initialJitter, jitterGrowth).Cholesky(a)
	if err != nil {
		recordFailure(err)
		return 0
	}
	return C.ulonglong(storeFactor(factor))
}

//export FactorDim
func FactorDim(handle C.ulonglong) C.int {
	recordFailure(nil)
	factor, err := fetchFactor(uint64(handle))
	if err != nil {
		recordFailure(err)
		return -1
	}
	return C.int(factor.Dim())
}

//export FactorJitter
func FactorJitter(handle C.ulonglong) C.double {
	recordFailure(nil)
	factor, err := fetchFactor(uint64(handle))
	if err != nil {
		recordFailure(err)
		return -1
	}
	return C.double(factor.Jitter())
}

//export CopyFactor
func CopyFactor(handle C.ulonglong, outputPtr *C.double) C.int {
	recordFailure(nil)
	factor, err := fetchFactor(uint64(handle))
	if err != nil {
		recordFailure(err)
		return 1
	}
	if err := writeDense(factor, outputPtr); err != nil {
		recordFailure(err)
		return 2
	}
	return 0
}

//export SolveFactor
func SolveFactor(
	handle C.ulonglong,
	rhsPtr *C.double,
	rows C.int,
	cols C.int,
	fortran C.int,
	mode C.int,
	outputPtr *C.double,
) C.int {
	recordFailure(nil)
	factor, err := fetchFactor(uint64(handle))
	if err != nil {
		recordFailure(err)
		return 1
	}

	rhs, err := buildDense(rhsPtr, rows, cols, fortran)
	if err != nil {
		recordFailure(err)
		return 2
	}

	var solution *mat.Dense
	switch mode {
	case 0:
		solution, err = chol.SolveCholesky(factor, rhs)
	case 1:
		solution, err = chol.SolveTriangular(factor, rhs, false)
	case 2:
		solution, err = chol.SolveTriangular(factor, rhs, true)
	default:
		err = errors.New("unsupported solve mode")
	}
	if err != nil {
		recordFailure(err)
		return 3
	}

	if err := writeDense(solution, outputPtr); err != nil {
		recordFailure(err)
		return 4
	}
	return 0
}

//export InvertFactor
func InvertFactor(handle C.ulonglong, outputPtr *C.double) C.int {
	recordFailure(nil)
	factor, err := fetchFactor(uint64(handle))
	if err != nil {
		recordFailure(err)
		return 1
	}
	inv, err := chol.CholeskyInverse(factor)
	if err != nil {
		recordFailure(err)
		return 2
	}
	if err := writeDense(inv, outputPtr); err != nil {
		recordFailure(err)
		return 3
	}
	return 0
}

//export UpdateFactor
func UpdateFactor(
	handle C.ulonglong,
	crossPtr *C.double,
	diagPtr *C.double,
	m C.int,
	fortran C.int,
	cachedPtr *C.double,
	rhsPtr *C.double,
	rhsCols C.int,
	outputPtr *C.double,
	maxTries C.int,
	initialJitter C.double,
	jitterGrowth C.double,
) C.ulonglong {
	recordFailure(nil)
	factor, err := fetchFactor(uint64(handle))
	if err != nil {
		recordFailure(err)
		return 0
	}
	n := C.int(factor.Dim())

	cross, err := buildDense(crossPtr, m, n, fortran)
	if err != nil {
		recordFailure(err)
		return 0
	}
	diag, err := buildDense(diagPtr, m, m, fortran)
	if err != nil {
		recordFailure(err)
		return 0
	}

	updater := factorizer(maxTries, initialJitter, jitterGrowth)
	if cachedPtr == nil {
		grown, err := updater.Update(factor, cross, diag)
		if err != nil {
			recordFailure(err)
			return 0
		}
		return C.ulonglong(storeFactor(grown))
	}

	cached, err := buildDense(cachedPtr, n, rhsCols, fortran)
	if err != nil {
		recordFailure(err)
		return 0
	}
	rhs, err := buildDense(rhsPtr, m, rhsCols, fortran)
	if err != nil {
		recordFailure(err)
		return 0
	}
	grown, extended, err := updater.UpdateSolve(factor, cross, diag, cached, rhs)
	if err != nil {
		recordFailure(err)
		return 0
	}
	if err := writeDense(extended, outputPtr); err != nil {
		recordFailure(err)
		return 0
	}
	return C.ulonglong(storeFactor(grown))
}

//export WarningCount
func WarningCount() C.int {
	return C.int(warnings.Len())
}

//export ResetWarnings
func ResetWarnings() {
	warnings.Reset()
}

//export GetLastError
func GetLastError() *C.char {
	if message := currentFailure().message; message != "" {
		return C.CString(message)
	}
	return nil
}

//GetLastErrorKind reports what the last call failed with: 0 nothing, 1 dimension mismatch,
//2 not positive definite, 3 singular triangular, 4 invalid jitter policy, 5 anything else.
//
//export GetLastErrorKind
func GetLastErrorKind() C.int {
	return currentFailure().kind
}

//export FreeCString
func FreeCString(message *C.char) {
	C.free(unsafe.Pointer(message))
}

func main() {}
