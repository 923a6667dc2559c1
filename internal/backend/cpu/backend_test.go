package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/mvfit/internal/parallel"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Helper to create test backend.
func newTestBackend() *CPUBackend {
	return New()
}

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.RawFromSlice(data, tensor.Shape(shape))
	if err != nil {
		t.Fatalf("RawFromSlice: %v", err)
	}
	return r
}

// Helper to check float32 slices are equal within epsilon.
func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-5
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
}

// TestCPUBackend_Binary tests element-wise operations with broadcasting.
func TestCPUBackend_Binary(t *testing.T) {
	backend := newTestBackend()

	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	col := raw(t, []float32{10, 20}, 2, 1)
	row := raw(t, []float32{1, 2, 3}, 3)

	tests := []struct {
		name string
		got  *tensor.RawTensor
		want []float32
	}{
		{"add column", backend.Add(a, col), []float32{11, 12, 13, 24, 25, 26}},
		{"sub row", backend.Sub(a, row), []float32{0, 0, 0, 3, 3, 3}},
		{"mul row", backend.Mul(a, row), []float32{1, 4, 9, 4, 10, 18}},
		{"div same", backend.Div(a, a), []float32{1, 1, 1, 1, 1, 1}},
		{"add scalar tensor", backend.Add(a, tensor.RawScalar(1)), []float32{2, 3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Shape().Equal(tensor.Shape{2, 3}) {
				t.Fatalf("Expected shape [2 3], got %v", tt.got.Shape())
			}
			if !float32SliceEqual(tt.got.Data(), tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, tt.got.Data())
			}
		})
	}
}

// TestCPUBackend_BinaryIncompatible tests that broadcast errors panic.
func TestCPUBackend_BinaryIncompatible(t *testing.T) {
	backend := newTestBackend()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for incompatible shapes")
		}
	}()
	backend.Add(tensor.MustRaw(tensor.Shape{2, 3}), tensor.MustRaw(tensor.Shape{2, 4}))
}

// TestCPUBackend_Unary tests element-wise math.
func TestCPUBackend_Unary(t *testing.T) {
	backend := newTestBackend()
	x := raw(t, []float32{0, 4, -9}, 3)

	if got := backend.Abs(x).Data(); !float32SliceEqual(got, []float32{0, 4, 9}) {
		t.Errorf("Abs: got %v", got)
	}
	if got := backend.Sqrt(backend.Abs(x)).Data(); !float32SliceEqual(got, []float32{0, 2, 3}) {
		t.Errorf("Sqrt: got %v", got)
	}
	if got := backend.AddScalar(x, 1).Data(); !float32SliceEqual(got, []float32{1, 5, -8}) {
		t.Errorf("AddScalar: got %v", got)
	}
	if got := backend.MulScalar(x, -2).Data(); !float32SliceEqual(got, []float32{0, -8, 18}) {
		t.Errorf("MulScalar: got %v", got)
	}

	angles := raw(t, []float32{0, math.Pi / 2}, 2)
	if got := backend.Cos(angles).Data(); !float32SliceEqual(got, []float32{1, 0}) {
		t.Errorf("Cos: got %v", got)
	}
	if got := backend.Sin(angles).Data(); !float32SliceEqual(got, []float32{0, 1}) {
		t.Errorf("Sin: got %v", got)
	}
}

// TestCPUBackend_Atan2 tests quadrant-aware arctangent.
func TestCPUBackend_Atan2(t *testing.T) {
	backend := newTestBackend()
	y := raw(t, []float32{1, 1, -1}, 3)
	x := raw(t, []float32{1, -1, 0}, 3)
	want := []float32{math.Pi / 4, 3 * math.Pi / 4, -math.Pi / 2}
	if got := backend.Atan2(y, x).Data(); !float32SliceEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestCPUBackend_MatMul tests 2-D and batched products.
func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)
	got := backend.MatMul(a, b)
	if !got.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected [2 2], got %v", got.Shape())
	}
	if !float32SliceEqual(got.Data(), []float32{58, 64, 139, 154}) {
		t.Errorf("2-D: got %v", got.Data())
	}

	batched := raw(t, []float32{1, 0, 0, 1, 2, 0, 0, 2}, 2, 2, 2)
	rhs := raw(t, []float32{1, 2, 3, 4}, 2, 2)
	got = backend.MatMul(batched, rhs)
	if !float32SliceEqual(got.Data(), []float32{1, 2, 3, 4, 2, 4, 6, 8}) {
		t.Errorf("shared rhs: got %v", got.Data())
	}

	rhs3 := raw(t, []float32{1, 2, 3, 4, 1, 1, 1, 1}, 2, 2, 2)
	got = backend.MatMul(batched, rhs3)
	if !float32SliceEqual(got.Data(), []float32{1, 2, 3, 4, 2, 2, 2, 2}) {
		t.Errorf("batched rhs: got %v", got.Data())
	}
}

// TestCPUBackend_MatMulNonFinite tests that NaN and Inf in the right operand
// reach the product even when multiplied by zero.
func TestCPUBackend_MatMulNonFinite(t *testing.T) {
	backend := newTestBackend()
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	a := raw(t, []float32{0, 1, 0, 0}, 2, 2)
	b := raw(t, []float32{nan, 2, 3, inf}, 2, 2)
	got := backend.MatMul(a, b).Data()

	// Row 0: 0*NaN + 1*3 and 0*2 + 1*Inf. Row 1: 0*NaN and 0*Inf.
	if !math.IsNaN(float64(got[0])) {
		t.Errorf("Expected NaN at [0 0], got %v", got[0])
	}
	if !math.IsInf(float64(got[1]), 1) {
		t.Errorf("Expected +Inf at [0 1], got %v", got[1])
	}
	if !math.IsNaN(float64(got[2])) || !math.IsNaN(float64(got[3])) {
		t.Errorf("Expected NaN in row 1, got %v", got[2:])
	}
}

// TestCPUBackend_MatMulParallel tests that row-parallel products match the
// sequential result.
func TestCPUBackend_MatMulParallel(t *testing.T) {
	m, k, n := 130, 7, 5
	a := tensor.MustRaw(tensor.Shape{m, k})
	b := tensor.MustRaw(tensor.Shape{k, n})
	for i := range a.Data() {
		a.Data()[i] = float32(i%11) - 5
	}
	for i := range b.Data() {
		b.Data()[i] = float32(i%3) + 0.5
	}

	seq := NewWithConfig(parallel.Sequential()).MatMul(a, b)
	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}).MatMul(a, b)
	if !float32SliceEqual(seq.Data(), par.Data()) {
		t.Error("Parallel matmul differs from sequential")
	}
}

// TestCPUBackend_MatMulMismatch tests inner dimension validation.
func TestCPUBackend_MatMulMismatch(t *testing.T) {
	backend := newTestBackend()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for inner dimension mismatch")
		}
	}()
	backend.MatMul(tensor.MustRaw(tensor.Shape{2, 3}), tensor.MustRaw(tensor.Shape{2, 3}))
}
