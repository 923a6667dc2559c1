package ops

import "github.com/born-ml/mvfit/internal/tensor"

// TransposeOp represents a swap of the last two dimensions.
// The transpose is its own inverse, so Backward transposes the gradient.
type TransposeOp struct{ base }

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(input, output *tensor.RawTensor) *TransposeOp {
	return &TransposeOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward transposes outputGrad.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose(outputGrad)}
}
