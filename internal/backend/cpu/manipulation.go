package cpu

import (
	"fmt"

	"github.com/born-ml/mvfit/internal/tensor"
)

// Reshape returns a view of x with a new shape.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v to %v", x.Shape(), shape))
	}
	return x.View(0, shape)
}

// Transpose swaps the last two dimensions.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("transpose: need at least 2 dimensions, got %v", shape))
	}
	r, c := shape[len(shape)-2], shape[len(shape)-1]
	outShape := shape.Clone()
	outShape[len(shape)-2], outShape[len(shape)-1] = c, r

	result := tensor.MustRaw(outShape)
	src, dst := x.Data(), result.Data()
	batch := x.NumElements() / (r * c)
	for b := 0; b < batch; b++ {
		base := b * r * c
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				dst[base+j*r+i] = src[base+i*c+j]
			}
		}
	}
	return result
}

// Narrow selects [start, start+length) along dim.
//
// When every dimension before dim has size 1 the selection is one
// contiguous run of memory and the result is a view sharing x's storage.
// Otherwise the selection is copied.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dim %d of %v", start, start+length, dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	outer, size, inner := splitAround(shape, dim)

	if outer == 1 {
		return x.View(start*inner, outShape)
	}

	result := tensor.MustRaw(outShape)
	src, dst := x.Data(), result.Data()
	chunk := length * inner
	for o := 0; o < outer; o++ {
		copy(dst[o*chunk:(o+1)*chunk], src[(o*size+start)*inner:])
	}
	return result
}

// Cat concatenates tensors along dim. All other dimensions must match.
func (cpu *CPUBackend) Cat(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(xs) == 0 {
		panic("cat: no tensors")
	}
	first := xs[0].Shape()
	dim = first.NormalizeDim(dim)

	outShape := first.Clone()
	outShape[dim] = 0
	for _, x := range xs {
		s := x.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("cat: rank mismatch %v vs %v", first, s))
		}
		for i := range s {
			if i != dim && s[i] != first[i] {
				panic(fmt.Sprintf("cat: shape mismatch %v vs %v at dim %d", first, s, i))
			}
		}
		outShape[dim] += s[dim]
	}

	result := tensor.MustRaw(outShape)
	dst := result.Data()
	outer, total, inner := splitAround(outShape, dim)

	pos := 0
	for _, x := range xs {
		size := x.Shape()[dim]
		src := x.Data()
		chunk := size * inner
		for o := 0; o < outer; o++ {
			copy(dst[(o*total+pos)*inner:], src[o*chunk:(o+1)*chunk])
		}
		pos += size
	}
	return result
}

// Expand broadcasts x to shape.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	outShape, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !outShape.Equal(shape) {
		panic(fmt.Sprintf("expand: cannot expand %v to %v", x.Shape(), shape))
	}

	result := tensor.MustRaw(shape)
	src, dst := x.Data(), result.Data()
	outStrides := shape.ComputeStrides()
	inStrides := computeBroadcastStridesForShape(x.Shape(), shape)
	for i := range dst {
		dst[i] = src[computeFlatIndex(i, outStrides, inStrides)]
	}
	return result
}
