package fitting

import (
	"image"

	"github.com/born-ml/mvfit/internal/autodiff"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Coeffs holds decoded face-model coefficients, one row per view.
type Coeffs struct {
	ID    *tensor.Tensor // [V, 532]
	Exp   *tensor.Tensor // [V, 45]
	Angle *tensor.Tensor // [V, 3]
	Gamma *tensor.Tensor // [V, 27]
	Trans *tensor.Tensor // [V, 3]
}

// Geometry is the face model output for a batch of coefficients.
type Geometry struct {
	Vertices  *tensor.Tensor // [V, N, 3]
	Texture   *tensor.Tensor // [V, N, 3] base albedo
	Shading   *tensor.Tensor // [V, N, 3]
	Color     *tensor.Tensor // [V, N, 3] texture * shading
	Landmarks *tensor.Tensor // [V, K, 2] image-space projections
}

// Topology is a triangle subset of the face model mesh.
type Topology struct {
	Name  string
	Faces [][3]int32
}

// FaceModel is the parametric face model.
//
// Implementations must build every output tensor from its inputs' backend so
// that the operations are recorded during fitting.
type FaceModel interface {
	// SplitCoeff decodes one view's flat coefficient vector [1, C].
	SplitCoeff(coeffs *tensor.Tensor) (Coeffs, error)
	// ComputeForRender evaluates geometry, appearance and landmarks.
	ComputeForRender(c Coeffs) Geometry
	// HeadTopology is the full head mesh.
	HeadTopology() Topology
	// FaceTopology is the frontal face region.
	FaceTopology() Topology
	// VertexUV is the per-vertex UV coordinate [N, 2].
	VertexUV() *tensor.Tensor
}

// TextureGAN is the generative UV texture network.
type TextureGAN interface {
	// InitZ draws an initial latent in the native sampling space.
	InitZ() *tensor.Tensor
	// MapZToW maps a native latent into the intermediate space.
	MapZToW(z *tensor.Tensor) *tensor.Tensor
	// InverseWToZ approximately inverts MapZToW.
	InverseWToZ(w *tensor.Tensor) *tensor.Tensor
	// SynthUVMap synthesizes a UV appearance map [1, 3, Hu, Wu] from w.
	SynthUVMap(w *tensor.Tensor) *tensor.Tensor
}

// Renderer is the differentiable rasterizer.
type Renderer interface {
	// Render rasterizes vertices over topology with per-vertex features
	// feat ([V, N, 2+3]: uv coordinates then shading) sampling uvMap.
	// Returns the coverage mask [V, 1, H, W], an implementation-defined
	// auxiliary output, and the color image [V, 3, H, W].
	Render(vertices *tensor.Tensor, topology Topology, feat, uvMap *tensor.Tensor) (mask, aux, image *tensor.Tensor)
}

// RecognitionNet extracts L2-normalized identity features.
type RecognitionNet interface {
	// Training reports whether the network is in training mode. Fitting
	// with the identity loss requires inference mode.
	Training() bool
	// Forward returns features [V, F] for images aligned by transforms [V, 2, 3].
	Forward(images, transforms *tensor.Tensor) *tensor.Tensor
}

// PerceptualNet is the frozen feature pyramid used by the VGG loss.
type PerceptualNet interface {
	Features(images *tensor.Tensor) []*tensor.Tensor
}

// Logger receives scalar series, text lines and image snapshots.
// Calls are fire-and-forget.
type Logger interface {
	Scalars(names []string, values []float64, step int)
	Text(line string)
	Images(names []string, images []image.Image, step int)
}

// Collaborators bundles everything a Fitter drives.
// Recognition and Perceptual may be nil when their loss weights are zero.
// Logger may be nil to discard logs.
type Collaborators struct {
	Backend     *autodiff.AutodiffBackend
	FaceModel   FaceModel
	TextureGAN  TextureGAN
	Renderer    Renderer
	Recognition RecognitionNet
	Perceptual  PerceptualNet
	Logger      Logger
}

// ViewData is the supervision for one photograph.
type ViewData struct {
	Image     *tensor.Tensor // [1, 3, H, W] in [0, 1]
	SkinMask  *tensor.Tensor // [1, 1, H, W]
	ParseMask *tensor.Tensor // [1, 1, H, W]
	Landmarks *tensor.Tensor // [1, K, 2]
	Transform *tensor.Tensor // [1, 2, 3] alignment for the recognition crop
}

type discardLogger struct{}

func (discardLogger) Scalars([]string, []float64, int) {}

func (discardLogger) Text(string) {}

func (discardLogger) Images([]string, []image.Image, int) {}
