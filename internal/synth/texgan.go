package synth

import (
	"math"
	"math/rand"
	"sync"

	"github.com/born-ml/mvfit/internal/backend/cpu"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Texture GAN dimensions.
const (
	LatentDim    = 16 // width of z and of each w row
	LatentLayers = 4  // rows of w
	UVSize       = 16 // side of the synthesized UV map
)

// TextureGAN maps z to w with a per-element affine map broadcast over
// LatentLayers rows, and synthesizes UV maps linearly from w:
//
//	w_l = z*scale + bias
//	uv  = 0.5 + 0.1 * reshape(flatten(w) @ G)
type TextureGAN struct {
	backend   tensor.Backend
	scale     *tensor.RawTensor // [1, D]
	bias      *tensor.RawTensor // [1, D]
	generator *tensor.RawTensor // [L*D, 3*UVSize*UVSize]

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTextureGAN creates a texture GAN with weights drawn from rng.
func NewTextureGAN(rng *rand.Rand) *TextureGAN {
	scale := tensor.MustRaw(tensor.Shape{1, LatentDim})
	for i, d := 0, scale.Data(); i < len(d); i++ {
		d[i] = float32(1 + rng.Float64())
	}
	bias := randomRaw(tensor.Shape{1, LatentDim}, 0.1, rng)
	gen := randomRaw(tensor.Shape{LatentLayers * LatentDim, 3 * UVSize * UVSize},
		1/math.Sqrt(LatentLayers*LatentDim), rng)

	return &TextureGAN{
		backend:   cpu.New(),
		scale:     scale,
		bias:      bias,
		generator: gen,
		rng:       rand.New(rand.NewSource(rng.Int63())), //nolint:gosec // G404: synthetic weights
	}
}

// InitZ draws z ~ N(0, I) of shape [1, D].
func (g *TextureGAN) InitZ() *tensor.Tensor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return tensor.Randn(tensor.Shape{1, LatentDim}, g.rng, g.backend)
}

// MapZToW maps z [1, D] to w [1, L, D].
func (g *TextureGAN) MapZToW(z *tensor.Tensor) *tensor.Tensor {
	b := z.Backend()
	return z.Mul(tensor.New(g.scale, b)).
		Add(tensor.New(g.bias, b)).
		Reshape(1, 1, LatentDim).
		Expand(1, LatentLayers, LatentDim)
}

// InverseWToZ averages the rows of w and inverts the affine map.
// It is exact for any w produced by MapZToW.
func (g *TextureGAN) InverseWToZ(w *tensor.Tensor) *tensor.Tensor {
	b := w.Backend()
	return w.MeanDim(1, false).
		Sub(tensor.New(g.bias, b)).
		Div(tensor.New(g.scale, b))
}

// SynthUVMap synthesizes a [1, 3, UVSize, UVSize] map from w [1, L, D].
func (g *TextureGAN) SynthUVMap(w *tensor.Tensor) *tensor.Tensor {
	b := w.Backend()
	return w.Reshape(1, LatentLayers*LatentDim).
		MatMul(tensor.New(g.generator, b)).
		MulScalar(0.1).
		AddScalar(0.5).
		Reshape(1, 3, UVSize, UVSize)
}
