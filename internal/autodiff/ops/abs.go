package ops

import "github.com/born-ml/mvfit/internal/tensor"

// AbsOp represents y = |x|. The subgradient at 0 is taken as 0.
type AbsOp struct{ base }

// NewAbsOp creates a new AbsOp.
func NewAbsOp(input, output *tensor.RawTensor) *AbsOp {
	return &AbsOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes outputGrad * sign(x).
func (op *AbsOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	sign := tensor.MustRaw(op.inputs[0].Shape())
	dst := sign.Data()
	for i, v := range op.inputs[0].Data() {
		switch {
		case v > 0:
			dst[i] = 1
		case v < 0:
			dst[i] = -1
		}
	}
	return []*tensor.RawTensor{backend.Mul(outputGrad, sign)}
}
