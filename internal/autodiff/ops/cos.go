package ops

import "github.com/born-ml/mvfit/internal/tensor"

// CosOp represents y = cos(x).
//
// Backward pass:
//   - d(cos(x))/dx = -sin(x)
type CosOp struct{ base }

// NewCosOp creates a new CosOp.
func NewCosOp(input, output *tensor.RawTensor) *CosOp {
	return &CosOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes -outputGrad * sin(x).
func (op *CosOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	sin := backend.Sin(op.inputs[0])
	return []*tensor.RawTensor{backend.MulScalar(backend.Mul(outputGrad, sin), -1)}
}
