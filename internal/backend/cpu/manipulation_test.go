package cpu

import (
	"testing"

	"github.com/born-ml/mvfit/internal/tensor"
)

// TestCPUBackend_Reshape tests that reshape is a view.
func TestCPUBackend_Reshape(t *testing.T) {
	backend := newTestBackend()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	y := backend.Reshape(x, tensor.Shape{3, 2})
	if !y.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Expected [3 2], got %v", y.Shape())
	}
	if !y.SharesStorage(x) {
		t.Error("Reshape should share storage")
	}
}

// TestCPUBackend_Transpose tests swapping the last two dimensions.
func TestCPUBackend_Transpose(t *testing.T) {
	backend := newTestBackend()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 2, 2, 3)
	y := backend.Transpose(x)
	if !y.Shape().Equal(tensor.Shape{2, 3, 2}) {
		t.Fatalf("Expected [2 3 2], got %v", y.Shape())
	}
	want := []float32{1, 4, 2, 5, 3, 6, 7, 10, 8, 11, 9, 12}
	if !float32SliceEqual(y.Data(), want) {
		t.Errorf("Expected %v, got %v", want, y.Data())
	}
}

// TestCPUBackend_Narrow tests view and copy paths.
func TestCPUBackend_Narrow(t *testing.T) {
	backend := newTestBackend()

	packed := raw(t, []float32{0, 1, 2, 3, 4, 5}, 1, 6)
	view := backend.Narrow(packed, 1, 1, 3)
	if !view.SharesStorage(packed) {
		t.Error("Narrow with unit outer dims should be a view")
	}
	if !float32SliceEqual(view.Data(), []float32{1, 2, 3}) {
		t.Errorf("view: got %v", view.Data())
	}

	grid := raw(t, []float32{0, 1, 2, 3, 4, 5}, 2, 3)
	cols := backend.Narrow(grid, -1, 1, 2)
	if cols.SharesStorage(grid) {
		t.Error("Strided narrow must copy")
	}
	if !float32SliceEqual(cols.Data(), []float32{1, 2, 4, 5}) {
		t.Errorf("copy: got %v", cols.Data())
	}
}

// TestCPUBackend_NarrowBounds tests range validation.
func TestCPUBackend_NarrowBounds(t *testing.T) {
	backend := newTestBackend()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for out-of-range narrow")
		}
	}()
	backend.Narrow(tensor.MustRaw(tensor.Shape{1, 4}), 1, 3, 2)
}

// TestCPUBackend_Cat tests concatenation on inner and outer dims.
func TestCPUBackend_Cat(t *testing.T) {
	backend := newTestBackend()
	a := raw(t, []float32{1, 2, 3, 4}, 2, 2)
	b := raw(t, []float32{5, 6}, 2, 1)

	got := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	if !got.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("Expected [2 3], got %v", got.Shape())
	}
	if !float32SliceEqual(got.Data(), []float32{1, 2, 5, 3, 4, 6}) {
		t.Errorf("dim 1: got %v", got.Data())
	}

	got = backend.Cat([]*tensor.RawTensor{a, a}, 0)
	if !float32SliceEqual(got.Data(), []float32{1, 2, 3, 4, 1, 2, 3, 4}) {
		t.Errorf("dim 0: got %v", got.Data())
	}
}

// TestCPUBackend_Expand tests broadcasting to a larger shape.
func TestCPUBackend_Expand(t *testing.T) {
	backend := newTestBackend()
	x := raw(t, []float32{1, 2}, 2, 1)
	got := backend.Expand(x, tensor.Shape{3, 2, 2})
	want := []float32{1, 1, 2, 2, 1, 1, 2, 2, 1, 1, 2, 2}
	if !float32SliceEqual(got.Data(), want) {
		t.Errorf("Expected %v, got %v", want, got.Data())
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for invalid expand")
		}
	}()
	backend.Expand(x, tensor.Shape{3, 3})
}

// TestCPUBackend_SumDim tests reductions along a dimension.
func TestCPUBackend_SumDim(t *testing.T) {
	backend := newTestBackend()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	rows := backend.SumDim(x, 1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) || !float32SliceEqual(rows.Data(), []float32{6, 15}) {
		t.Errorf("dim 1: got %v %v", rows.Shape(), rows.Data())
	}

	cols := backend.SumDim(x, 0, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) || !float32SliceEqual(cols.Data(), []float32{5, 7, 9}) {
		t.Errorf("dim 0 keepDim: got %v %v", cols.Shape(), cols.Data())
	}

	if got := backend.Sum(x).Data()[0]; got != 21 {
		t.Errorf("Sum: expected 21, got %f", got)
	}
}
