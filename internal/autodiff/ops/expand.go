package ops

import "github.com/born-ml/mvfit/internal/tensor"

// ExpandOp represents a broadcast of the input to a larger shape.
// Backward sums the gradient over the broadcast dimensions.
type ExpandOp struct{ base }

// NewExpandOp creates a new ExpandOp.
func NewExpandOp(input, output *tensor.RawTensor) *ExpandOp {
	return &ExpandOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward reduces outputGrad to the input shape.
func (op *ExpandOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{reduceBroadcast(outputGrad, op.inputs[0].Shape(), backend)}
}
