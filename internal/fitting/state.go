package fitting

import (
	"fmt"

	"github.com/born-ml/mvfit/internal/tensor"
)

// ParameterState owns the optimization variables: the packed coefficient
// tensor [1, 532 + V*78] and the appearance latents.
//
// Named blocks are views of the packed tensor, never copies: writing
// through a view writes the packed tensor, and on an autodiff backend the
// gradient of a view flows into the packed tensor.
type ParameterState struct {
	backend tensor.Backend
	gan     TextureGAN
	layout  *Layout

	coeffs  *tensor.Tensor // packed coefficients, optimization leaf
	latentZ *tensor.Tensor // native latent, fixed during iteration
	latentW *tensor.Tensor // intermediate latent, optimization leaf

	finalized bool
}

// Result is the detached output of a fitting run.
type Result struct {
	Coeffs  *tensor.Tensor // [1, 532 + V*78]
	LatentZ *tensor.Tensor
	LatentW *tensor.Tensor
}

// NewParameterState packs per-view initial coefficients and initializes the
// latents.
//
// Each initCoeffs entry is split with model.SplitCoeff. The identity blocks
// are averaged; the exp/angle/gamma/trans blocks are written at their
// layout offsets. When initZ is nil a latent is drawn from gan.InitZ.
// A decoded block whose width disagrees with the layout yields a
// *ShapeMismatchError.
func NewParameterState(b tensor.Backend, model FaceModel, gan TextureGAN, initCoeffs []*tensor.Tensor, initZ *tensor.Tensor) (*ParameterState, error) {
	layout, err := NewLayout(len(initCoeffs))
	if err != nil {
		return nil, err
	}

	packed := tensor.Zeros(tensor.Shape{1, layout.Width()}, b)
	data := packed.Data()
	id := data[:IDDim]

	for v, flat := range initCoeffs {
		c, err := model.SplitCoeff(flat)
		if err != nil {
			return nil, fmt.Errorf("view %d: split coefficients: %w", v, err)
		}
		blocks := map[BlockKind]*tensor.Tensor{
			KindID: c.ID, KindExp: c.Exp, KindAngle: c.Angle, KindGamma: c.Gamma, KindTrans: c.Trans,
		}
		for _, kind := range []BlockKind{KindID, KindExp, KindAngle, KindGamma, KindTrans} {
			if err := checkBlock(v, kind, blocks[kind]); err != nil {
				return nil, err
			}
		}

		for i, x := range c.ID.Data() {
			id[i] += x
		}
		for _, kind := range viewKinds {
			blk := layout.ViewBlock(kind, v)
			copy(data[blk.Offset:blk.Offset+blk.Length], blocks[kind].Data())
		}
	}

	inv := 1 / float32(len(initCoeffs))
	for i := range id {
		id[i] *= inv
	}

	if initZ == nil {
		initZ = gan.InitZ()
	}
	z := tensor.New(initZ.Raw(), b)
	w := tensor.New(gan.MapZToW(z).Raw().Clone(), b)

	return &ParameterState{
		backend: b,
		gan:     gan,
		layout:  layout,
		coeffs:  packed.RequireGrad(),
		latentZ: z,
		latentW: w.RequireGrad(),
	}, nil
}

// checkBlock verifies that a decoded block is a single row of the layout width.
func checkBlock(view int, kind BlockKind, t *tensor.Tensor) error {
	if t == nil {
		return &ShapeMismatchError{View: view, Block: kind.String(), Want: kind.Width(), Got: 0}
	}
	shape := t.Shape()
	got := 0
	if len(shape) > 0 {
		got = shape[len(shape)-1]
	}
	if got != kind.Width() || t.NumElements() != kind.Width() {
		return &ShapeMismatchError{View: view, Block: kind.String(), Want: kind.Width(), Got: got}
	}
	return nil
}

// Layout returns the coefficient layout.
func (s *ParameterState) Layout() *Layout {
	return s.layout
}

// Views returns the number of views.
func (s *ParameterState) Views() int {
	return s.layout.Views()
}

// Coeffs returns the packed coefficient leaf.
func (s *ParameterState) Coeffs() *tensor.Tensor {
	return s.coeffs
}

// LatentW returns the w latent leaf.
func (s *ParameterState) LatentW() *tensor.Tensor {
	return s.latentW
}

// LatentZ returns the z latent the run was initialized from.
func (s *ParameterState) LatentZ() *tensor.Tensor {
	return s.latentZ
}

// NamedView returns the [1, width] block called name ("id", "exp.0",
// "angle.1", ...). The result aliases the packed tensor.
func (s *ParameterState) NamedView(name string) (*tensor.Tensor, error) {
	blk, err := s.layout.Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.view(blk), nil
}

func (s *ParameterState) view(blk Block) *tensor.Tensor {
	return s.coeffs.Narrow(1, blk.Offset, blk.Length)
}

// Decode slices the packed tensor into batch-stacked blocks, one row per
// view. The shared identity is broadcast to every row.
func (s *ParameterState) Decode() Coeffs {
	v := s.layout.Views()
	stack := func(kind BlockKind) *tensor.Tensor {
		rows := make([]*tensor.Tensor, v)
		for i := range rows {
			rows[i] = s.view(s.layout.ViewBlock(kind, i))
		}
		if v == 1 {
			return rows[0]
		}
		return tensor.Cat(rows, 0)
	}

	return Coeffs{
		ID:    s.view(s.layout.ViewBlock(KindID, 0)).Expand(v, IDDim),
		Exp:   stack(KindExp),
		Angle: stack(KindAngle),
		Gamma: stack(KindGamma),
		Trans: stack(KindTrans),
	}
}

// Finalize returns detached copies of the coefficients and w, and z
// recovered from w through the inverse mapping. It may be called once.
func (s *ParameterState) Finalize() (*Result, error) {
	if s.finalized {
		return nil, ErrFinalized
	}
	s.finalized = true

	w := s.latentW.Detach().Clone()
	z := s.gan.InverseWToZ(w).Detach().Clone()

	return &Result{
		Coeffs:  s.coeffs.Detach().Clone(),
		LatentZ: z,
		LatentW: w,
	}, nil
}
