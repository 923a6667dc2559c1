package fitting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/mvfit/internal/tensor"
)

// coeffWidth is the flat per-view width consumed by stubModel.
const coeffWidth = IDDim + ViewDim

// stubModel splits flat coefficients into blocks. A non-zero expWidth
// makes the exp block that wide to exercise shape checks.
type stubModel struct {
	expWidth int
}

func (m stubModel) SplitCoeff(coeffs *tensor.Tensor) (Coeffs, error) {
	flat := coeffs.Reshape(1, coeffs.NumElements())
	offset := 0
	next := func(n int) *tensor.Tensor {
		t := flat.Narrow(1, offset, n)
		offset += n
		return t
	}
	expWidth := ExpDim
	if m.expWidth != 0 {
		expWidth = m.expWidth
	}
	return Coeffs{
		ID:    next(IDDim),
		Exp:   next(expWidth),
		Angle: next(AngleDim),
		Gamma: next(GammaDim),
		Trans: next(TransDim),
	}, nil
}

func (stubModel) ComputeForRender(Coeffs) Geometry { return Geometry{} }
func (stubModel) HeadTopology() Topology           { return Topology{Name: "head"} }
func (stubModel) FaceTopology() Topology           { return Topology{Name: "face"} }
func (stubModel) VertexUV() *tensor.Tensor         { return nil }

// stubGAN repeats z over two layers.
type stubGAN struct {
	b tensor.Backend
}

func (g stubGAN) InitZ() *tensor.Tensor {
	return tensor.Full(tensor.Shape{1, 4}, 0.5, g.b)
}

func (stubGAN) MapZToW(z *tensor.Tensor) *tensor.Tensor {
	return z.MulScalar(2).Reshape(1, 1, 4).Expand(1, 2, 4)
}

func (stubGAN) InverseWToZ(w *tensor.Tensor) *tensor.Tensor {
	return w.MeanDim(1, false).MulScalar(0.5)
}

func (stubGAN) SynthUVMap(w *tensor.Tensor) *tensor.Tensor { return w }

// flatCoeffs returns a [1, coeffWidth] vector whose blocks are filled
// with id, exp, angle, gamma and trans in turn.
func flatCoeffs(t *testing.T, b tensor.Backend, id, exp, angle, gamma, trans float32) *tensor.Tensor {
	t.Helper()
	data := make([]float32, 0, coeffWidth)
	for _, blk := range []struct {
		n int
		v float32
	}{{IDDim, id}, {ExpDim, exp}, {AngleDim, angle}, {GammaDim, gamma}, {TransDim, trans}} {
		for i := 0; i < blk.n; i++ {
			data = append(data, blk.v)
		}
	}
	c, err := tensor.FromSlice(data, tensor.Shape{1, coeffWidth}, b)
	require.NoError(t, err)
	return c
}
