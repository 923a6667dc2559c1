package ops

import "github.com/born-ml/mvfit/internal/tensor"

// Atan2Op represents output = atan2(y, x).
//
// Backward pass:
//   - d/dy = x / (x² + y²)
//   - d/dx = -y / (x² + y²)
type Atan2Op struct{ base }

// NewAtan2Op creates a new Atan2Op.
func NewAtan2Op(y, x, output *tensor.RawTensor) *Atan2Op {
	return &Atan2Op{base{inputs: []*tensor.RawTensor{y, x}, output: output}}
}

// Backward computes input gradients for atan2.
func (op *Atan2Op) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	y, x := op.inputs[0], op.inputs[1]

	denom := backend.Add(backend.Mul(x, x), backend.Mul(y, y))
	scaled := backend.Div(outputGrad, denom)

	gradY := reduceBroadcast(backend.Mul(scaled, x), y.Shape(), backend)
	gradX := reduceBroadcast(backend.MulScalar(backend.Mul(scaled, y), -1), x.Shape(), backend)

	return []*tensor.RawTensor{gradY, gradX}
}
