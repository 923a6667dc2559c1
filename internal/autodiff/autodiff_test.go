package autodiff

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/mvfit/internal/backend/cpu"
	"github.com/born-ml/mvfit/internal/tensor"
)

// scalarFn builds a scalar from x on the given backend.
type scalarFn func(x *tensor.Tensor) *tensor.Tensor

// checkGradient compares the recorded gradient of f at x0 with central
// differences evaluated on the plain CPU backend.
func checkGradient(t *testing.T, name string, x0 []float32, shape tensor.Shape, f scalarFn) {
	t.Helper()

	backend := New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice(x0, shape, backend)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	y := f(x)
	grads := Backward(y, backend)
	got, ok := grads[x.Raw()]
	if !ok {
		t.Fatalf("%s: no gradient for input", name)
	}
	if !got.Shape().Equal(shape) {
		t.Fatalf("%s: gradient shape %v, want %v", name, got.Shape(), shape)
	}

	plain := cpu.New()
	const h = 1e-2
	for i := range x0 {
		plus := append([]float32(nil), x0...)
		minus := append([]float32(nil), x0...)
		plus[i] += h
		minus[i] -= h
		xp, _ := tensor.FromSlice(plus, shape, plain)
		xm, _ := tensor.FromSlice(minus, shape, plain)
		numeric := (float64(f(xp).Item()) - float64(f(xm).Item())) / (2 * h)
		analytic := float64(got.Data()[i])
		if math.Abs(numeric-analytic) > 2e-2*math.Max(1, math.Abs(numeric)) {
			t.Errorf("%s: d/dx[%d] analytic %.5f, numeric %.5f", name, i, analytic, numeric)
		}
	}
}

func randomData(n int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rng.Float64()*2 - 1)
	}
	return out
}

// TestGradients tests every recorded operation against finite differences.
func TestGradients(t *testing.T) {
	shape := tensor.Shape{2, 3}
	x0 := randomData(6, 1)
	positive := make([]float32, len(x0))
	for i, v := range x0 {
		positive[i] = float32(math.Abs(float64(v))) + 0.5
	}

	constant := func(x *tensor.Tensor, seed int64, s ...int) *tensor.Tensor {
		c, _ := tensor.FromSlice(randomData(tensor.Shape(s).NumElements(), seed), tensor.Shape(s), x.Backend())
		return c
	}

	tests := []struct {
		name string
		x0   []float32
		f    scalarFn
	}{
		{"add", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.Add(constant(x, 2, 2, 3)).Square().Sum() }},
		{"add broadcast", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return constant(x, 2, 4, 2, 3).Add(x).Square().Sum()
		}},
		{"sub", x0, func(x *tensor.Tensor) *tensor.Tensor { return constant(x, 3, 1, 3).Sub(x).Square().Sum() }},
		{"mul", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.Mul(x).Mul(constant(x, 4, 2, 1)).Sum() }},
		{"div", positive, func(x *tensor.Tensor) *tensor.Tensor { return constant(x, 5, 2, 3).Div(x).Sum() }},
		{"div numerator", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return x.Div(tensor.Full(tensor.Shape{3}, 2, x.Backend())).Square().Sum()
		}},
		{"atan2", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return x.Atan2(tensor.Full(tensor.Shape{2, 3}, 1.5, x.Backend())).Sum()
		}},
		{"atan2 x", positive, func(x *tensor.Tensor) *tensor.Tensor {
			return constant(x, 6, 2, 3).Atan2(x).Sum()
		}},
		{"scalar ops", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.MulScalar(3).AddScalar(1).Square().Sum() }},
		{"sqrt", positive, func(x *tensor.Tensor) *tensor.Tensor { return x.Sqrt().Sum() }},
		{"abs", positive, func(x *tensor.Tensor) *tensor.Tensor { return x.MulScalar(-1).Abs().Square().Sum() }},
		{"cos sin", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.Cos().Mul(x.Sin()).Sum() }},
		{"sumdim", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.SumDim(1, false).Square().Sum() }},
		{"meandim keep", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.MeanDim(0, true).Mul(x).Sum() }},
		{"reshape transpose", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return x.Reshape(3, 2).Transpose().Mul(constant(x, 7, 2, 3)).Sum()
		}},
		{"matmul left", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.MatMul(constant(x, 8, 3, 4)).Square().Sum() }},
		{"matmul right", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return constant(x, 9, 4, 2).MatMul(x).Square().Sum()
		}},
		{"matmul batched shared", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return constant(x, 10, 3, 5, 2).MatMul(x).Square().Sum()
		}},
		{"narrow copy", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.Narrow(1, 1, 2).Square().Sum() }},
		{"narrow view", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return x.Reshape(1, 6).Narrow(1, 2, 3).Square().Sum()
		}},
		{"cat", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return tensor.Cat([]*tensor.Tensor{x, x.MulScalar(2)}, 1).Square().Sum()
		}},
		{"expand", x0, func(x *tensor.Tensor) *tensor.Tensor {
			return x.Reshape(2, 1, 3).Expand(2, 4, 3).Mul(constant(x, 11, 2, 4, 3)).Sum()
		}},
		{"mean", x0, func(x *tensor.Tensor) *tensor.Tensor { return x.Square().Mean() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkGradient(t, tt.name, tt.x0, shape, tt.f)
		})
	}
}

// TestBackward_NarrowViewsOfPackedParameter tests that gradients of several
// views reach the packed parameter they alias.
func TestBackward_NarrowViewsOfPackedParameter(t *testing.T) {
	backend := New(cpu.New())
	backend.Tape().StartRecording()

	packed := tensor.Zeros(tensor.Shape{1, 5}, backend).RequireGrad()
	a := packed.Narrow(1, 0, 2)
	b := packed.Narrow(1, 3, 2)
	loss := a.MulScalar(2).Sum().Add(b.MulScalar(3).Sum())

	grads := Backward(loss, backend)
	got := grads[packed.Raw()]
	if got == nil {
		t.Fatal("no gradient for packed parameter")
	}
	want := []float32{2, 2, 0, 3, 3}
	for i, v := range got.Data() {
		if v != want[i] {
			t.Errorf("index %d: expected %f, got %f", i, want[i], v)
		}
	}
}

// TestBackward_Detach tests that detached tensors stop gradient flow.
func TestBackward_Detach(t *testing.T) {
	backend := New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Full(tensor.Shape{2}, 3, backend).RequireGrad()
	y := x.Mul(x.Detach()).Sum()

	grads := Backward(y, backend)
	for i, v := range grads[x.Raw()].Data() {
		if v != 3 {
			t.Errorf("index %d: expected 3 (detached factor), got %f", i, v)
		}
	}
}

// TestBackward_EmptyTape tests that Backward refuses to run without a record.
func TestBackward_EmptyTape(t *testing.T) {
	backend := New(cpu.New())
	x := tensor.Ones(tensor.Shape{2}, backend)
	y := x.Sum() // not recording

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for empty tape")
		}
	}()
	Backward(y, backend)
}

// TestGradientTape_Recording tests Start, Stop and Clear.
func TestGradientTape_Recording(t *testing.T) {
	backend := New(cpu.New())
	tape := backend.Tape()
	x := tensor.Ones(tensor.Shape{2}, backend)

	x.Add(x)
	if tape.NumOps() != 0 {
		t.Errorf("Expected no ops while stopped, got %d", tape.NumOps())
	}

	tape.StartRecording()
	x.Add(x).Sum()
	if tape.NumOps() != 2 {
		t.Errorf("Expected 2 ops, got %d", tape.NumOps())
	}

	tape.Clear()
	if tape.NumOps() != 0 || !tape.IsRecording() {
		t.Error("Clear should drop ops and keep recording state")
	}
	tape.StopRecording()
	if tape.IsRecording() {
		t.Error("StopRecording had no effect")
	}
}
