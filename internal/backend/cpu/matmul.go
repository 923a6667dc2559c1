package cpu

import (
	"fmt"

	"github.com/born-ml/mvfit/internal/parallel"
	"github.com/born-ml/mvfit/internal/tensor"
)

// MatMul performs matrix multiplication.
//
// Supported layouts:
//
//	[M, K] @ [K, N] -> [M, N]
//	[B, M, K] @ [B, K, N] -> [B, M, N]
//	[B, M, K] @ [K, N] -> [B, M, N] (shared right operand)
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()

	switch {
	case len(aShape) == 2 && len(bShape) == 2:
		m, k, n := aShape[0], aShape[1], bShape[1]
		checkInner(aShape, bShape, k, bShape[0])
		result := tensor.MustRaw(tensor.Shape{m, n})
		cpu.matmulFloat32(result.Data(), a.Data(), b.Data(), m, k, n)
		return result

	case len(aShape) == 3 && (len(bShape) == 3 || len(bShape) == 2):
		batch, m, k := aShape[0], aShape[1], aShape[2]
		shared := len(bShape) == 2
		var kAlt, n int
		if shared {
			kAlt, n = bShape[0], bShape[1]
		} else {
			if bShape[0] != batch {
				panic(fmt.Sprintf("matmul: batch mismatch %v @ %v", aShape, bShape))
			}
			kAlt, n = bShape[1], bShape[2]
		}
		checkInner(aShape, bShape, k, kAlt)

		result := tensor.MustRaw(tensor.Shape{batch, m, n})
		ad, bd, dst := a.Data(), b.Data(), result.Data()
		for i := 0; i < batch; i++ {
			bSlice := bd
			if !shared {
				bSlice = bd[i*k*n : (i+1)*k*n]
			}
			cpu.matmulFloat32(dst[i*m*n:(i+1)*m*n], ad[i*m*k:(i+1)*m*k], bSlice, m, k, n)
		}
		return result

	default:
		panic(fmt.Sprintf("matmul: unsupported shapes %v @ %v", aShape, bShape))
	}
}

func checkInner(aShape, bShape tensor.Shape, k, kAlt int) {
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch %v @ %v", aShape, bShape))
	}
}

// matmulFloat32 uses the i-k-j loop order for cache-friendly row access.
// Output rows are independent and computed in parallel.
func (cpu *CPUBackend) matmulFloat32(c, a, b []float32, m, k, n int) {
	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			aik := a[i*k+kk]
			bRow := b[kk*n : (kk+1)*n]
			for j := range row {
				row[j] += aik * bRow[j]
			}
		}
	}, cpu.parallel)
}
