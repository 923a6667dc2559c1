package tensor

import "fmt"

// Tensor pairs a RawTensor with the backend that computes on it.
//
// Operations are chainable and dispatch to the backend, so a tensor built on
// an autodiff backend records every operation on that backend's tape:
//
//	backend := autodiff.New(cpu.New())
//	x := tensor.Ones(tensor.Shape{2, 2}, backend).RequireGrad()
//	y := x.Mul(x).Sum()
type Tensor struct {
	raw          *RawTensor
	backend      Backend
	requiresGrad bool
}

// New creates a Tensor from a RawTensor and backend.
func New(raw *RawTensor, b Backend) *Tensor {
	return &Tensor{raw: raw, backend: b}
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.raw.Shape()
}

// Dim returns the size of dimension d (negative counts from the end).
func (t *Tensor) Dim(d int) int {
	s := t.raw.Shape()
	return s[s.NormalizeDim(d)]
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
func (t *Tensor) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor) Backend() Backend {
	return t.backend
}

// Data returns the tensor's elements (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float32 {
	return t.raw.Data()
}

// Item returns the value of a single-element tensor.
func (t *Tensor) Item() float32 {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for single-element tensors, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float32 {
	return t.Data()[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
func (t *Tensor) Set(value float32, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

func (t *Tensor) flatIndex(indices []int) int {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(shape), len(indices)))
	}
	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v on %s", t.Shape(), t.backend.Name())
}

// Detach returns a tensor that shares the same data but is a new node for
// gradient tracking, so nothing computed from it flows back into t.
func (t *Tensor) Detach() *Tensor {
	return &Tensor{raw: t.raw.Alias(), backend: t.backend}
}

// Clone creates a deep copy of the tensor. The copy does not track gradients.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{raw: t.raw.Clone(), backend: t.backend}
}

// RequireGrad marks this tensor as an optimization leaf.
// Returns the tensor itself for method chaining.
func (t *Tensor) RequireGrad() *Tensor {
	t.requiresGrad = true
	return t
}

// RequiresGrad returns true if this tensor is marked as an optimization leaf.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}
