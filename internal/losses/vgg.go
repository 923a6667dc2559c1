package losses

import "github.com/born-ml/mvfit/internal/tensor"

// DefaultVGGLayerWeights weights relu1_1 … relu5_1 features, coarse layers first.
var DefaultVGGLayerWeights = []float32{1.0 / 32, 1.0 / 16, 1.0 / 8, 1.0 / 4, 1.0}

// FeatureExtractor produces a pyramid of feature maps for a batch of images.
type FeatureExtractor interface {
	Features(images *tensor.Tensor) []*tensor.Tensor
}

// VGGLoss is the weighted L1 distance between the feature pyramids of pred
// and target. Target features are detached. Layers beyond len(weights) use
// weight 1.
func VGGLoss(pred, target *tensor.Tensor, net FeatureExtractor, weights []float32) *tensor.Tensor {
	predFeat := net.Features(pred)
	targetFeat := net.Features(target)

	var loss *tensor.Tensor
	for i := range predFeat {
		w := float32(1)
		if i < len(weights) {
			w = weights[i]
		}
		l1 := predFeat[i].Sub(targetFeat[i].Detach()).Abs().Mean().MulScalar(w)
		if loss == nil {
			loss = l1
		} else {
			loss = loss.Add(l1)
		}
	}
	if loss == nil {
		return tensor.Scalar(0, pred.Backend())
	}
	return loss
}
