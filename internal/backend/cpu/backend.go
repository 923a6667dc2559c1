// Package cpu implements the pure Go CPU backend.
package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/mvfit/internal/parallel"
	"github.com/born-ml/mvfit/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
// Every operation allocates a fresh result; inputs are never written.
type CPUBackend struct {
	parallel parallel.Config
}

// New creates a new CPU backend. Matrix products are split across rows
// using parallel.DefaultConfig.
func New() *CPUBackend {
	return &CPUBackend{parallel: parallel.DefaultConfig()}
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{parallel: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// Atan2 computes atan2(y, x) element-wise with broadcasting.
func (cpu *CPUBackend) Atan2(y, x *tensor.RawTensor) *tensor.RawTensor {
	return binary("atan2", y, x, func(a, b float32) float32 {
		return float32(math.Atan2(float64(a), float64(b)))
	})
}

// AddScalar adds s to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return v + s })
}

// MulScalar multiplies every element by s.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return v * s })
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return float32(math.Sqrt(float64(v))) })
}

// Abs computes the element-wise absolute value.
func (cpu *CPUBackend) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return float32(math.Abs(float64(v))) })
}

// Cos computes the element-wise cosine.
func (cpu *CPUBackend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return float32(math.Cos(float64(v))) })
}

// Sin computes the element-wise sine.
func (cpu *CPUBackend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return float32(math.Sin(float64(v))) })
}

func unary(x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	result := tensor.MustRaw(x.Shape())
	src, dst := x.Data(), result.Data()
	for i, v := range src {
		dst[i] = f(v)
	}
	return result
}

func binary(name string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	outShape, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result := tensor.MustRaw(outShape)
	ad, bd, dst := a.Data(), b.Data(), result.Data()

	// Fast path: identical shapes
	if a.Shape().Equal(b.Shape()) {
		for i := range dst {
			dst[i] = f(ad[i], bd[i])
		}
		return result
	}

	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(a.Shape(), outShape)
	bStrides := computeBroadcastStridesForShape(b.Shape(), outShape)
	for i := range dst {
		dst[i] = f(ad[computeFlatIndex(i, outStrides, aStrides)], bd[computeFlatIndex(i, outStrides, bStrides)])
	}
	return result
}
