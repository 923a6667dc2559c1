package ops

import "github.com/born-ml/mvfit/internal/tensor"

// SinOp represents y = sin(x).
//
// Backward pass:
//   - d(sin(x))/dx = cos(x)
type SinOp struct{ base }

// NewSinOp creates a new SinOp.
func NewSinOp(input, output *tensor.RawTensor) *SinOp {
	return &SinOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes outputGrad * cos(x).
func (op *SinOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, backend.Cos(op.inputs[0]))}
}
