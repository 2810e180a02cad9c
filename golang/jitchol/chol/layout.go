package chol

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

//TensorMatrix exposes a two dimensional float64 tensor as a gonum matrix.
//Elements are addressed through the strides of the tensor, so row-major and
//column-major tensors read identically.
type TensorMatrix struct {
	t *tensor.Dense
}

func NewTensorMatrix(t *tensor.Dense) (*TensorMatrix, error) {
	if t == nil {
		return nil, errors.Wrap(ErrDimensionMismatch, "nil tensor")
	}
	if t.Dims() != 2 {
		return nil, errors.Wrapf(ErrDimensionMismatch, "tensor of shape %v is not a matrix", t.Shape())
	}
	if t.Dtype() != tensor.Float64 {
		return nil, errors.Wrapf(ErrDimensionMismatch, "tensor holds %v, not float64", t.Dtype())
	}
	return &TensorMatrix{t: t}, nil
}

func (m *TensorMatrix) Dims() (r, c int) {
	shape := m.t.Shape()
	return shape[0], shape[1]
}

func (m *TensorMatrix) At(i, j int) float64 {
	r, c := m.Dims()
	if uint(i) >= uint(r) || uint(j) >= uint(c) {
		panic(mat.ErrIndexOutOfRange)
	}
	// vector shaped tensors keep a single stride, a 1×1 column-major tensor none
	var rowStride, colStride int
	switch strides := m.t.Strides(); len(strides) {
	case 0:
	case 1:
		rowStride, colStride = strides[0], strides[0]
	default:
		rowStride, colStride = strides[0], strides[1]
	}
	return m.t.Float64s()[i*rowStride+j*colStride]
}

func (m *TensorMatrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

//ColMajor reports whether the underlying tensor stores its columns contiguously.
func (m *TensorMatrix) ColMajor() bool {
	return m.t.DataOrder().IsColMajor()
}

//FromTensor copies a two dimensional tensor into a row-major dense matrix.
func FromTensor(t *tensor.Dense) (*mat.Dense, error) {
	m, err := NewTensorMatrix(t)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(m), nil
}

//ToTensor copies a matrix into a new tensor, column-major when colMajor is set.
func ToTensor(m mat.Matrix, colMajor bool) *tensor.Dense {
	r, c := m.Dims()
	data := make([]float64, r*c)
	if colMajor {
		for j := 0; j < c; j++ {
			for i := 0; i < r; i++ {
				data[j*r+i] = m.At(i, j)
			}
		}
		return ColumnMajorTensor(r, c, data)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = m.At(i, j)
		}
	}
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(data))
}

//ColumnMajorTensor wraps data that already holds a rows×cols matrix column by column.
//tensor.AsFortran with a backing slice expects row-major data and reorders it, so the
//backing is attached after the column-major strides are set.
func ColumnMajorTensor(rows, cols int, data []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, cols), tensor.AsFortran(nil), tensor.WithBacking(data))
}
