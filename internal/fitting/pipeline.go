package fitting

import (
	"github.com/born-ml/mvfit/internal/tensor"
)

// Prediction is the output of one forward evaluation. It is rebuilt every
// step and never retained by the Fitter beyond the step that produced it.
type Prediction struct {
	Coeffs    Coeffs
	Vertices  *tensor.Tensor // [V, N, 3]
	Texture   *tensor.Tensor // [V, N, 3]
	Shading   *tensor.Tensor // [V, N, 3]
	Color     *tensor.Tensor // [V, N, 3]
	Landmarks *tensor.Tensor // [V, K, 2]
	UVMap     *tensor.Tensor // [1, 3, Hu, Wu]
	HeadMask  *tensor.Tensor // [V, 1, H, W]
	Head      *tensor.Tensor // [V, 3, H, W]
	FaceMask  *tensor.Tensor // [V, 1, H, W]
	Face      *tensor.Tensor // [V, 3, H, W]
}

// Pipeline turns a ParameterState into renderable images by driving the
// face model, texture GAN and renderer. Every output stays connected to
// the packed coefficients and w.
type Pipeline struct {
	model    FaceModel
	gan      TextureGAN
	renderer Renderer
}

// NewPipeline creates a forward pipeline.
func NewPipeline(model FaceModel, gan TextureGAN, renderer Renderer) *Pipeline {
	return &Pipeline{model: model, gan: gan, renderer: renderer}
}

// Evaluate runs the face model on the decoded coefficients, synthesizes the
// UV map from w, and renders the head and the frontal face with shared
// geometry, shading and UV inputs.
func (p *Pipeline) Evaluate(s *ParameterState) *Prediction {
	coeffs := s.Decode()
	geom := p.model.ComputeForRender(coeffs)
	uvMap := p.gan.SynthUVMap(s.LatentW())

	feat := renderFeatures(p.model.VertexUV(), geom.Shading, s.backend)

	headMask, _, head := p.renderer.Render(geom.Vertices, p.model.HeadTopology(), feat, uvMap)
	faceMask, _, face := p.renderer.Render(geom.Vertices, p.model.FaceTopology(), feat, uvMap)

	return &Prediction{
		Coeffs:    coeffs,
		Vertices:  geom.Vertices,
		Texture:   geom.Texture,
		Shading:   geom.Shading,
		Color:     geom.Color,
		Landmarks: geom.Landmarks,
		UVMap:     uvMap,
		HeadMask:  headMask,
		Head:      head,
		FaceMask:  faceMask,
		Face:      face,
	}
}

// renderFeatures concatenates per-vertex UV coordinates, repeated for each
// view, with the shading: [V, N, 2] ++ [V, N, 3] -> [V, N, 5].
func renderFeatures(vertexUV, shading *tensor.Tensor, b tensor.Backend) *tensor.Tensor {
	v, n := shading.Dim(0), shading.Dim(1)
	uv := tensor.New(vertexUV.Raw(), b).Reshape(1, n, 2).Expand(v, n, 2)
	return tensor.Cat([]*tensor.Tensor{uv, shading}, 2)
}
