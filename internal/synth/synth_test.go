package synth

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mvfit/internal/backend/cpu"
	"github.com/born-ml/mvfit/internal/fitting"
	"github.com/born-ml/mvfit/internal/tensor"
)

func TestTextureGAN_InverseRoundTrip(t *testing.T) {
	g := NewTextureGAN(rand.New(rand.NewSource(3)))

	z := g.InitZ()
	require.Equal(t, tensor.Shape{1, LatentDim}, z.Shape())

	w := g.MapZToW(z)
	require.Equal(t, tensor.Shape{1, LatentLayers, LatentDim}, w.Shape())

	// Every row of w is the same affine image of z.
	row := w.Data()[:LatentDim]
	for l := 1; l < LatentLayers; l++ {
		assert.Equal(t, row, w.Data()[l*LatentDim:(l+1)*LatentDim])
	}

	assert.InDeltaSlice(t, z.Data(), g.InverseWToZ(w).Data(), 1e-5)

	uv := g.SynthUVMap(w)
	assert.Equal(t, tensor.Shape{1, 3, UVSize, UVSize}, uv.Shape())
}

func TestTextureGAN_InitZIsSeeded(t *testing.T) {
	a := NewTextureGAN(rand.New(rand.NewSource(9))).InitZ()
	b := NewTextureGAN(rand.New(rand.NewSource(9))).InitZ()
	assert.Equal(t, a.Data(), b.Data())
}

func TestFaceModel_SplitCoeff(t *testing.T) {
	m := NewFaceModel(16, rand.New(rand.NewSource(1)))
	b := cpu.New()

	data := make([]float32, CoeffWidth)
	for i := range data {
		data[i] = float32(i)
	}
	coeffs, err := tensor.FromSlice(data, tensor.Shape{1, CoeffWidth}, b)
	require.NoError(t, err)

	c, err := m.SplitCoeff(coeffs)
	require.NoError(t, err)

	blocks := []struct {
		t      *tensor.Tensor
		offset int
		width  int
	}{
		{c.ID, 0, fitting.IDDim},
		{c.Exp, fitting.IDDim, fitting.ExpDim},
		{c.Angle, fitting.IDDim + fitting.ExpDim, fitting.AngleDim},
		{c.Gamma, fitting.IDDim + fitting.ExpDim + fitting.AngleDim, fitting.GammaDim},
		{c.Trans, CoeffWidth - fitting.TransDim, fitting.TransDim},
	}
	for _, blk := range blocks {
		assert.Equal(t, tensor.Shape{1, blk.width}, blk.t.Shape())
		assert.Equal(t, float32(blk.offset), blk.t.Data()[0])
	}

	short := tensor.Zeros(tensor.Shape{1, 10}, b)
	_, err = m.SplitCoeff(short)
	assert.Error(t, err)
}

func TestFaceModel_ComputeForRender(t *testing.T) {
	const size = 20
	m := NewFaceModel(size, rand.New(rand.NewSource(1)))
	b := cpu.New()

	c, err := m.SplitCoeff(tensor.Zeros(tensor.Shape{1, CoeffWidth}, b))
	require.NoError(t, err)
	geom := m.ComputeForRender(c)

	assert.Equal(t, tensor.Shape{1, NumVertices, 3}, geom.Vertices.Shape())
	assert.Equal(t, tensor.Shape{1, NumVertices, 3}, geom.Shading.Shape())
	assert.Equal(t, tensor.Shape{1, NumVertices, 2}, geom.Landmarks.Shape())

	for _, s := range geom.Shading.Data() {
		assert.InDelta(t, 1, s, 1e-6)
	}

	// Zero coefficients project the mean shape.
	mean := meanShape()
	lm := geom.Landmarks.Data()
	for i := 0; i < NumVertices; i++ {
		x, y := project(size, mean[3*i], mean[3*i+1])
		assert.InDelta(t, x, lm[2*i], 1e-4)
		assert.InDelta(t, y, lm[2*i+1], 1e-4)
	}
}

func TestFaceModel_Topologies(t *testing.T) {
	m := NewFaceModel(16, rand.New(rand.NewSource(1)))

	assert.Len(t, topologyVertices(m.HeadTopology(), NumVertices), NumVertices)
	assert.Len(t, topologyVertices(m.FaceTopology(), NumVertices), NumVertices-17)
	assert.Equal(t, "face", m.FaceTopology().Name)
}

func TestRenderer_UniformTexture(t *testing.T) {
	const size = 16
	m := NewFaceModel(size, rand.New(rand.NewSource(1)))
	r := NewRenderer(size)
	b := cpu.New()

	c, err := m.SplitCoeff(tensor.Zeros(tensor.Shape{1, CoeffWidth}, b))
	require.NoError(t, err)
	geom := m.ComputeForRender(c)

	uv := tensor.New(m.VertexUV().Raw(), b).Reshape(1, NumVertices, 2)
	feat := tensor.Cat([]*tensor.Tensor{uv, geom.Shading}, 2)
	uvMap := tensor.Full(tensor.Shape{1, 3, UVSize, UVSize}, 0.5, b)

	mask, aux, img := r.Render(geom.Vertices, m.HeadTopology(), feat, uvMap)
	require.Equal(t, tensor.Shape{1, 1, size, size}, mask.Shape())
	require.Equal(t, tensor.Shape{1, 1, size, size}, aux.Shape())
	require.Equal(t, tensor.Shape{1, 3, size, size}, img.Shape())

	covered := 0
	md, ad, id := mask.Data(), aux.Data(), img.Data()
	for p, v := range md {
		require.True(t, v == 0 || v == 1, "mask value %g", v)
		if v == 1 {
			covered++
			assert.Greater(t, ad[p], float32(0))
		} else {
			assert.Zero(t, ad[p])
		}
		// Splat weights sum to one, so a uniform texture renders flat.
		for ch := 0; ch < 3; ch++ {
			assert.InDelta(t, 0.5*v, id[ch*size*size+p], 1e-5)
		}
	}
	assert.Greater(t, covered, size*size/8)
	assert.Less(t, covered, size*size)
}

func TestRecognition_UnitNorm(t *testing.T) {
	const size = 8
	rng := rand.New(rand.NewSource(5))
	r := NewRecognition(size, rng)
	b := cpu.New()

	assert.False(t, r.Training())
	r.SetTraining(true)
	assert.True(t, r.Training())
	r.SetTraining(false)

	images := tensor.Randn(tensor.Shape{2, 3, size, size}, rng, b)
	transforms := tensor.Randn(tensor.Shape{2, 2, 3}, rng, b)
	feat := r.Forward(images, transforms)
	require.Equal(t, tensor.Shape{2, RecognitionFeatures}, feat.Shape())

	d := feat.Data()
	for v := 0; v < 2; v++ {
		var sum float64
		for _, x := range d[v*RecognitionFeatures : (v+1)*RecognitionFeatures] {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1, math.Sqrt(sum), 1e-4)
	}
}

func TestPerceptual_Features(t *testing.T) {
	images := tensor.Full(tensor.Shape{2, 3, 4, 5}, 0.25, cpu.New())
	feats := NewPerceptual().Features(images)

	want := []tensor.Shape{
		{2, 3, 4, 5},
		{2, 1, 4, 5},
		{2, 3, 4},
		{2, 3, 5},
		{2, 3},
	}
	require.Len(t, feats, len(want))
	for i, f := range feats {
		assert.Equal(t, want[i], f.Shape(), "level %d", i)
		assert.InDelta(t, 0.25, f.Data()[0], 1e-6)
	}
}

func TestNewScene(t *testing.T) {
	cfg := SceneConfig{Views: 3, ImageSize: 12, Seed: 4, Noise: 1}
	s, err := NewScene(cfg)
	require.NoError(t, err)

	require.Len(t, s.Views, 3)
	require.Len(t, s.InitCoeffs, 3)
	require.Len(t, s.TrueCoeffs, 3)
	assert.Equal(t, tensor.Shape{1, LatentDim}, s.InitZ.Shape())

	for i, v := range s.Views {
		assert.Equal(t, tensor.Shape{1, 3, 12, 12}, v.Image.Shape(), "view %d", i)
		assert.Equal(t, tensor.Shape{1, 1, 12, 12}, v.SkinMask.Shape())
		assert.Equal(t, tensor.Shape{1, 1, 12, 12}, v.ParseMask.Shape())
		assert.Equal(t, tensor.Shape{1, NumVertices, 2}, v.Landmarks.Shape())
		assert.Equal(t, tensor.Shape{1, 2, 3}, v.Transform.Shape())
		assert.Equal(t, tensor.Shape{1, CoeffWidth}, s.InitCoeffs[i].Shape())
	}

	// The identity is shared by every view's ground truth.
	id0 := s.TrueCoeffs[0].Data()[:fitting.IDDim]
	for _, c := range s.TrueCoeffs[1:] {
		assert.Equal(t, id0, c.Data()[:fitting.IDDim])
	}

	again, err := NewScene(cfg)
	require.NoError(t, err)
	assert.Equal(t, s.Views[0].Image.Data(), again.Views[0].Image.Data())
	assert.Equal(t, s.InitCoeffs[2].Data(), again.InitCoeffs[2].Data())
}

func TestNewScene_NoNoise(t *testing.T) {
	s, err := NewScene(SceneConfig{Views: 1, ImageSize: 8, Seed: 2})
	require.NoError(t, err)
	assert.Equal(t, s.TrueCoeffs[0].Data(), s.InitCoeffs[0].Data())
	assert.Equal(t, s.TrueZ.Data(), s.InitZ.Data())
}

func TestNewScene_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  SceneConfig
	}{
		{"no views", SceneConfig{Views: 0, ImageSize: 16}},
		{"tiny images", SceneConfig{Views: 1, ImageSize: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScene(tt.cfg)
			assert.Error(t, err)
		})
	}
}
