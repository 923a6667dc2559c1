package synth

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/mvfit/internal/autodiff"
	"github.com/born-ml/mvfit/internal/backend/cpu"
	"github.com/born-ml/mvfit/internal/fitting"
	"github.com/born-ml/mvfit/internal/losses"
	"github.com/born-ml/mvfit/internal/tensor"
)

// backgroundLevel is the gray value outside the rendered head.
const backgroundLevel = 0.2

// SceneConfig controls scene generation.
type SceneConfig struct {
	Views     int     // Number of photographs
	ImageSize int     // Side of the square images
	Seed      int64   // Seed for every random draw
	Noise     float64 // Scale of the perturbation applied to the initial guess
}

// DefaultSceneConfig returns a two-view 32x32 scene.
func DefaultSceneConfig() SceneConfig {
	return SceneConfig{Views: 2, ImageSize: 32, Seed: 1, Noise: 1}
}

// Scene is a synthetic fitting problem: collaborators, per-view supervision
// rendered from known parameters, and a perturbed initial guess.
type Scene struct {
	Model       *FaceModel
	GAN         *TextureGAN
	Renderer    *Renderer
	Recognition *Recognition
	Perceptual  *Perceptual

	Views      []fitting.ViewData
	TrueCoeffs []*tensor.Tensor // [1, CoeffWidth] per view
	TrueZ      *tensor.Tensor   // [1, LatentDim]
	InitCoeffs []*tensor.Tensor
	InitZ      *tensor.Tensor
}

// blockNoise is the per-block standard deviation of ground truth draws and
// of initial-guess perturbations.
var blockNoise = []struct {
	width        int
	truth, guess float64
}{
	{fitting.IDDim, 0.5, 0.3},
	{fitting.ExpDim, 0.5, 0.3},
	{fitting.AngleDim, 0.1, 0.05},
	{fitting.GammaDim, 0.1, 0.05},
	{fitting.TransDim, 0.05, 0.03},
}

// NewScene builds a scene. The identity is shared across views.
func NewScene(cfg SceneConfig) (*Scene, error) {
	if cfg.Views <= 0 {
		return nil, fmt.Errorf("scene needs at least one view, got %d", cfg.Views)
	}
	if cfg.ImageSize < 8 {
		return nil, fmt.Errorf("scene image size must be at least 8, got %d", cfg.ImageSize)
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: reproducible synthetic data
	b := cpu.New()

	s := &Scene{
		Model:       NewFaceModel(cfg.ImageSize, rng),
		GAN:         NewTextureGAN(rng),
		Renderer:    NewRenderer(cfg.ImageSize),
		Recognition: NewRecognition(cfg.ImageSize, rng),
		Perceptual:  NewPerceptual(),
	}

	id := make([]float32, fitting.IDDim)
	for i := range id {
		id[i] = float32(rng.NormFloat64() * blockNoise[0].truth)
	}

	s.TrueZ = tensor.Randn(tensor.Shape{1, LatentDim}, rng, b)
	s.InitZ = s.TrueZ.Add(tensor.Randn(tensor.Shape{1, LatentDim}, rng, b).MulScalar(float32(0.5 * cfg.Noise)))

	for v := 0; v < cfg.Views; v++ {
		truth := make([]float32, 0, CoeffWidth)
		guess := make([]float32, 0, CoeffWidth)
		for k, blk := range blockNoise {
			for i := 0; i < blk.width; i++ {
				var x float32
				if k == 0 {
					x = id[i]
				} else {
					x = float32(rng.NormFloat64() * blk.truth)
				}
				truth = append(truth, x)
				guess = append(guess, x+float32(rng.NormFloat64()*blk.guess*cfg.Noise))
			}
		}

		tc, err := tensor.FromSlice(truth, tensor.Shape{1, CoeffWidth}, b)
		if err != nil {
			return nil, err
		}
		ic, err := tensor.FromSlice(guess, tensor.Shape{1, CoeffWidth}, b)
		if err != nil {
			return nil, err
		}
		s.TrueCoeffs = append(s.TrueCoeffs, tc)
		s.InitCoeffs = append(s.InitCoeffs, ic)

		view, err := s.render(tc, cfg.ImageSize)
		if err != nil {
			return nil, fmt.Errorf("render view %d: %w", v, err)
		}
		s.Views = append(s.Views, view)
	}
	return s, nil
}

// render produces the supervision of one view from its true coefficients.
func (s *Scene) render(coeffs *tensor.Tensor, size int) (fitting.ViewData, error) {
	c, err := s.Model.SplitCoeff(coeffs)
	if err != nil {
		return fitting.ViewData{}, err
	}
	geom := s.Model.ComputeForRender(c)
	uvMap := s.GAN.SynthUVMap(s.GAN.MapZToW(s.TrueZ))

	b := coeffs.Backend()
	uv := tensor.New(s.Model.VertexUV().Raw(), b).Reshape(1, NumVertices, 2)
	feat := tensor.Cat([]*tensor.Tensor{uv, geom.Shading}, 2)

	headMask, _, head := s.Renderer.Render(geom.Vertices, s.Model.HeadTopology(), feat, uvMap)
	faceMask, _, _ := s.Renderer.Render(geom.Vertices, s.Model.FaceTopology(), feat, uvMap)

	background := headMask.MulScalar(-backgroundLevel).AddScalar(backgroundLevel)
	img := head.Add(background)

	return fitting.ViewData{
		Image:     img,
		SkinMask:  headMask,
		ParseMask: faceMask,
		Landmarks: geom.Landmarks,
		Transform: losses.EstimateNorm(geom.Landmarks, size),
	}, nil
}

// Collaborators wires the scene's collaborators to backend b.
func (s *Scene) Collaborators(b *autodiff.AutodiffBackend, logger fitting.Logger) fitting.Collaborators {
	return fitting.Collaborators{
		Backend:     b,
		FaceModel:   s.Model,
		TextureGAN:  s.GAN,
		Renderer:    s.Renderer,
		Recognition: s.Recognition,
		Perceptual:  s.Perceptual,
		Logger:      logger,
	}
}
