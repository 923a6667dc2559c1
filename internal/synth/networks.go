package synth

import (
	"math"
	"math/rand"

	"github.com/born-ml/mvfit/internal/tensor"
)

// RecognitionFeatures is the width of the identity feature vector.
const RecognitionFeatures = 32

// Recognition is a fixed random projection of the image and its alignment
// transform, L2-normalized per view.
type Recognition struct {
	training  bool
	imageProj *tensor.RawTensor // [3*H*W, F]
	transProj *tensor.RawTensor // [6, F]
}

// NewRecognition creates a recognition network for size x size images in
// inference mode.
func NewRecognition(size int, rng *rand.Rand) *Recognition {
	in := 3 * size * size
	return &Recognition{
		imageProj: randomRaw(tensor.Shape{in, RecognitionFeatures}, 1/math.Sqrt(float64(in)), rng),
		transProj: randomRaw(tensor.Shape{6, RecognitionFeatures}, 0.01, rng),
	}
}

// Training reports whether the network is in training mode.
func (r *Recognition) Training() bool {
	return r.training
}

// SetTraining switches between training and inference mode.
func (r *Recognition) SetTraining(training bool) {
	r.training = training
}

// Forward returns unit-norm features [V, F].
func (r *Recognition) Forward(images, transforms *tensor.Tensor) *tensor.Tensor {
	b := images.Backend()
	v := images.Dim(0)
	feat := images.Reshape(v, images.NumElements()/v).
		MatMul(tensor.New(r.imageProj, b)).
		Add(tensor.New(transforms.Raw(), b).Reshape(v, 6).MatMul(tensor.New(r.transProj, b)))
	norm := feat.Square().SumDim(1, true).AddScalar(1e-12).Sqrt()
	return feat.Div(norm)
}

// Perceptual is a parameter-free feature pyramid: the image, its channel
// mean, row and column profiles, and per-channel means.
type Perceptual struct{}

// NewPerceptual creates the perceptual network.
func NewPerceptual() *Perceptual {
	return &Perceptual{}
}

// Features returns five feature maps of images [V, 3, H, W].
func (Perceptual) Features(images *tensor.Tensor) []*tensor.Tensor {
	v, c, h, w := images.Dim(0), images.Dim(1), images.Dim(2), images.Dim(3)
	return []*tensor.Tensor{
		images,
		images.MeanDim(1, true),
		images.MeanDim(3, false),
		images.MeanDim(2, false),
		images.Reshape(v, c, h*w).MeanDim(2, false),
	}
}
