package tensor

import (
	"fmt"
	"math"
)

// RawTensor is the low-level tensor representation.
//
// Storage is a float32 slice that may be shared between several RawTensors:
// a view created with View addresses a contiguous window of its parent's
// storage, so writes through the view are visible in the parent and vice
// versa. Gradient bookkeeping is keyed by *RawTensor identity, not storage.
type RawTensor struct {
	storage []float32 // Shared backing array
	shape   Shape     // Tensor dimensions
	offset  int       // First element of this tensor inside storage
}

// NewRaw creates a zero-filled RawTensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		storage: make([]float32, shape.NumElements()),
		shape:   shape.Clone(),
	}, nil
}

// MustRaw is like NewRaw but panics on an invalid shape.
// Backends use it for result allocation where the shape is already derived
// from valid inputs.
func MustRaw(shape Shape) *RawTensor {
	r, err := NewRaw(shape)
	if err != nil {
		panic(err)
	}
	return r
}

// RawFromSlice copies data into a new RawTensor of the given shape.
func RawFromSlice(data []float32, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	r, err := NewRaw(shape)
	if err != nil {
		return nil, err
	}
	copy(r.storage, data)
	return r, nil
}

// RawScalar creates a 0-D tensor holding v.
func RawScalar(v float32) *RawTensor {
	return &RawTensor{storage: []float32{v}, shape: Shape{}}
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns row-major strides for the tensor's shape.
func (r *RawTensor) Strides() []int {
	return r.shape.ComputeStrides()
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Offset returns the position of the tensor's first element in its storage.
func (r *RawTensor) Offset() int {
	return r.offset
}

// Data returns the tensor's elements.
// WARNING: the slice aliases the underlying storage; writes modify the tensor
// and every view sharing its storage.
func (r *RawTensor) Data() []float32 {
	n := r.NumElements()
	return r.storage[r.offset : r.offset+n : r.offset+n]
}

// View returns a RawTensor addressing NumElements(shape) consecutive elements
// starting at start (relative to r). The result shares storage with r.
func (r *RawTensor) View(start int, shape Shape) *RawTensor {
	n := shape.NumElements()
	if start < 0 || start+n > r.NumElements() {
		panic(fmt.Sprintf("view [%d, %d) out of bounds for tensor with %d elements", start, start+n, r.NumElements()))
	}
	return &RawTensor{
		storage: r.storage,
		shape:   shape.Clone(),
		offset:  r.offset + start,
	}
}

// Alias returns a new RawTensor header over the same elements.
// The alias has its own identity, so it is a distinct node for autodiff.
func (r *RawTensor) Alias() *RawTensor {
	return r.View(0, r.shape)
}

// SharesStorage reports whether r and other are backed by the same array.
func (r *RawTensor) SharesStorage(other *RawTensor) bool {
	if other == nil || len(r.storage) == 0 || len(other.storage) == 0 {
		return false
	}
	return &r.storage[0] == &other.storage[0]
}

// Clone creates a deep copy with its own storage.
func (r *RawTensor) Clone() *RawTensor {
	c := MustRaw(r.shape)
	copy(c.storage, r.Data())
	return c
}

// Fill sets every element to v.
func (r *RawTensor) Fill(v float32) {
	data := r.Data()
	for i := range data {
		data[i] = v
	}
}

// IsFinite reports whether every element is neither NaN nor ±Inf.
func (r *RawTensor) IsFinite() bool {
	for _, v := range r.Data() {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
