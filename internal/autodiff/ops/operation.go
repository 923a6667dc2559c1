// Package ops defines operation interfaces and implementations for automatic differentiation.
//
// Each operation implements the Operation interface, which provides:
//   - Forward pass: computed by the backend
//   - Backward pass: computes gradients for inputs given output gradient
//
// Supported operations:
//   - AddOp, SubOp, MulOp, DivOp: element-wise arithmetic with broadcasting
//   - Atan2Op: two-argument arctangent
//   - MatMulOp: (batched) matrix multiplication
//   - AddScalarOp, MulScalarOp: scalar arithmetic
//   - SqrtOp, AbsOp, CosOp, SinOp: element-wise math
//   - SumOp, SumDimOp: reductions
//   - ReshapeOp, TransposeOp, NarrowOp, CatOp, ExpandOp: shape manipulation
package ops

import "github.com/born-ml/mvfit/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
// Each operation records its inputs and output during the forward pass,
// and computes input gradients during the backward pass.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor.
	// A nil entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

// base stores inputs and output shared by every operation.
type base struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// Inputs returns the recorded inputs.
func (b *base) Inputs() []*tensor.RawTensor {
	return b.inputs
}

// Output returns the recorded output.
func (b *base) Output() *tensor.RawTensor {
	return b.output
}
