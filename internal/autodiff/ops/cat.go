package ops

import (
	"github.com/born-ml/mvfit/internal/tensor"
)

// CatOp represents a concatenation operation along a dimension.
//
// Backward splits the output gradient along dim at the input boundaries and
// hands each input its own slice.
type CatOp struct {
	base
	dim   int
	sizes []int
}

// NewCatOp creates a new cat operation. dim must already be normalized.
func NewCatOp(inputs []*tensor.RawTensor, dim int, output *tensor.RawTensor) *CatOp {
	sizes := make([]int, len(inputs))
	for i, in := range inputs {
		sizes[i] = in.Shape()[dim]
	}
	return &CatOp{base: base{inputs: inputs, output: output}, dim: dim, sizes: sizes}
}

// Backward computes gradients for the input tensors.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	pos := 0
	for i, size := range op.sizes {
		grads[i] = backend.Narrow(outputGrad, op.dim, pos, size)
		pos += size
	}
	return grads
}
