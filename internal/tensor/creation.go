package tensor

import "math/rand"

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, b Backend) *Tensor {
	return New(MustRaw(shape), b)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, b Backend) *Tensor {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float32, b Backend) *Tensor {
	raw := MustRaw(shape)
	raw.Fill(value)
	return New(raw, b)
}

// Scalar creates a 0-D tensor.
func Scalar(value float32, b Backend) *Tensor {
	return New(RawScalar(value), b)
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float32, shape Shape, b Backend) (*Tensor, error) {
	raw, err := RawFromSlice(data, shape)
	if err != nil {
		return nil, err
	}
	return New(raw, b), nil
}

// Randn creates a tensor with standard normal entries drawn from rng.
func Randn(shape Shape, rng *rand.Rand, b Backend) *Tensor {
	raw := MustRaw(shape)
	data := raw.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return New(raw, b)
}
