package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - cpu: Pure Go reference backend
//
// Decorator backends for additional functionality:
//   - autodiff: Records operations on a gradient tape (wraps any backend)
//
// Binary element-wise operations follow NumPy broadcasting. Misuse (shape
// mismatch, dimension out of range) panics, the same way indexing a Go slice
// out of range does.
type Backend interface {
	// Element-wise binary operations (broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor
	Atan2(y, x *RawTensor) *RawTensor

	// MatMul multiplies [M, K] @ [K, N] or batched [B, M, K] @ [B, K, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Scalar operations
	AddScalar(x *RawTensor, s float32) *RawTensor
	MulScalar(x *RawTensor, s float32) *RawTensor

	// Element-wise math
	Sqrt(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor
	Cos(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor

	// Reductions
	Sum(x *RawTensor) *RawTensor                           // total sum (0-D result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along dimension

	// Shape and manipulation
	Reshape(x *RawTensor, shape Shape) *RawTensor
	Transpose(x *RawTensor) *RawTensor                       // swap the last two dimensions
	Narrow(x *RawTensor, dim, start, length int) *RawTensor // slice along dim, a view when contiguous
	Cat(xs []*RawTensor, dim int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor // broadcast to shape

	// Metadata
	Name() string
}
