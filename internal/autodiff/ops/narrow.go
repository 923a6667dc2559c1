package ops

import "github.com/born-ml/mvfit/internal/tensor"

// NarrowOp represents the selection of [start, start+length) along dim.
//
// Backward scatters the gradient into a zero tensor of the input shape, so a
// view taken from a packed parameter delivers its gradient to the parent.
type NarrowOp struct {
	base
	dim   int
	start int
}

// NewNarrowOp creates a new NarrowOp. dim must already be normalized.
func NewNarrowOp(input, output *tensor.RawTensor, dim, start int) *NarrowOp {
	return &NarrowOp{base: base{inputs: []*tensor.RawTensor{input}, output: output}, dim: dim, start: start}
}

// Backward computes the input gradient for narrow.
func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	grad := tensor.MustRaw(inShape)

	outer, size, inner := splitAround(inShape, op.dim)
	length := outputGrad.Shape()[op.dim]
	chunk := length * inner

	src, dst := outputGrad.Data(), grad.Data()
	for o := 0; o < outer; o++ {
		copy(dst[(o*size+op.start)*inner:], src[o*chunk:(o+1)*chunk])
	}
	return []*tensor.RawTensor{grad}
}
