package tensor

// Add returns t + other (broadcasting).
func (t *Tensor) Add(other *Tensor) *Tensor {
	return New(t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub returns t - other (broadcasting).
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return New(t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul returns t * other element-wise (broadcasting).
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return New(t.backend.Mul(t.raw, other.raw), t.backend)
}

// Div returns t / other element-wise (broadcasting).
func (t *Tensor) Div(other *Tensor) *Tensor {
	return New(t.backend.Div(t.raw, other.raw), t.backend)
}

// Atan2 returns atan2(t, x) element-wise (broadcasting).
func (t *Tensor) Atan2(x *Tensor) *Tensor {
	return New(t.backend.Atan2(t.raw, x.raw), t.backend)
}

// MatMul returns the (batched) matrix product t @ other.
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	return New(t.backend.MatMul(t.raw, other.raw), t.backend)
}

// AddScalar returns t + s.
func (t *Tensor) AddScalar(s float32) *Tensor {
	return New(t.backend.AddScalar(t.raw, s), t.backend)
}

// MulScalar returns t * s.
func (t *Tensor) MulScalar(s float32) *Tensor {
	return New(t.backend.MulScalar(t.raw, s), t.backend)
}

// Square returns t * t.
func (t *Tensor) Square() *Tensor {
	return t.Mul(t)
}

// Sqrt returns the element-wise square root.
func (t *Tensor) Sqrt() *Tensor {
	return New(t.backend.Sqrt(t.raw), t.backend)
}

// Abs returns the element-wise absolute value.
func (t *Tensor) Abs() *Tensor {
	return New(t.backend.Abs(t.raw), t.backend)
}

// Cos returns the element-wise cosine.
func (t *Tensor) Cos() *Tensor {
	return New(t.backend.Cos(t.raw), t.backend)
}

// Sin returns the element-wise sine.
func (t *Tensor) Sin() *Tensor {
	return New(t.backend.Sin(t.raw), t.backend)
}

// Sum reduces all elements to a 0-D tensor.
func (t *Tensor) Sum() *Tensor {
	return New(t.backend.Sum(t.raw), t.backend)
}

// Mean averages all elements to a 0-D tensor.
func (t *Tensor) Mean() *Tensor {
	return t.Sum().MulScalar(1 / float32(t.NumElements()))
}

// SumDim sums along dim.
func (t *Tensor) SumDim(dim int, keepDim bool) *Tensor {
	return New(t.backend.SumDim(t.raw, dim, keepDim), t.backend)
}

// MeanDim averages along dim.
func (t *Tensor) MeanDim(dim int, keepDim bool) *Tensor {
	n := t.Dim(dim)
	return t.SumDim(dim, keepDim).MulScalar(1 / float32(n))
}

// Reshape returns the tensor with a new shape and the same elements.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	return New(t.backend.Reshape(t.raw, Shape(shape)), t.backend)
}

// Transpose swaps the last two dimensions.
func (t *Tensor) Transpose() *Tensor {
	return New(t.backend.Transpose(t.raw), t.backend)
}

// Narrow returns length entries of dim starting at start. When the selected
// region is contiguous in memory the result aliases t.
func (t *Tensor) Narrow(dim, start, length int) *Tensor {
	return New(t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// Expand broadcasts t to shape.
func (t *Tensor) Expand(shape ...int) *Tensor {
	return New(t.backend.Expand(t.raw, Shape(shape)), t.backend)
}

// Cat concatenates tensors along dim using the first tensor's backend.
func Cat(tensors []*Tensor, dim int) *Tensor {
	if len(tensors) == 0 {
		panic("Cat: no tensors")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	b := tensors[0].backend
	return New(b.Cat(raws, dim), b)
}
