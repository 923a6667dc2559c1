package cpu

import (
	"github.com/born-ml/mvfit/internal/tensor"
)

// Sum reduces all elements to a 0-D tensor.
// Accumulates in float64 to keep large image reductions stable.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	var sum float64
	for _, v := range x.Data() {
		sum += float64(v)
	}
	return tensor.RawScalar(float32(sum))
}

// SumDim sums along dim, optionally keeping it as a size-1 dimension.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	outer, size, inner := splitAround(shape, dim)

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := tensor.MustRaw(outShape)
	src, dst := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		for s := 0; s < size; s++ {
			base := (o*size + s) * inner
			out := dst[o*inner : (o+1)*inner]
			for i := range out {
				out[i] += src[base+i]
			}
		}
	}
	return result
}

// splitAround returns the element counts before, at and after dim.
func splitAround(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}
