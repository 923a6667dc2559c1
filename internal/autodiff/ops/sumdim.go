package ops

import "github.com/born-ml/mvfit/internal/tensor"

// SumDimOp represents a sum along one dimension.
//
// Backward pass: the gradient is reshaped to keep the reduced dimension as
// size 1 and then broadcast back to the input shape.
type SumDimOp struct {
	base
	dim int
}

// NewSumDimOp creates a new SumDimOp. dim must already be normalized.
func NewSumDimOp(input, output *tensor.RawTensor, dim int) *SumDimOp {
	return &SumDimOp{base: base{inputs: []*tensor.RawTensor{input}, output: output}, dim: dim}
}

// Backward computes the input gradient for a dimension sum.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	kept := backend.Reshape(outputGrad, keepDimShape(inShape, op.dim))
	return []*tensor.RawTensor{backend.Expand(kept, inShape)}
}
