package ops

import "github.com/born-ml/mvfit/internal/tensor"

// SumOp represents a full reduction to a 0-D tensor.
// Backward broadcasts the scalar gradient back to the input shape.
type SumOp struct{ base }

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward expands outputGrad to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Expand(outputGrad, op.inputs[0].Shape())}
}
