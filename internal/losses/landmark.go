package losses

import "github.com/born-ml/mvfit/internal/tensor"

// landmarkEmphasis is the weight of the nose bridge and inner-mouth points
// of the 68-point convention.
const landmarkEmphasis = 20

// LandmarkWeights returns per-point weights for a k-point landmark set.
// 68-point sets weight points 28–30 and the last 8 points by 20; other
// sets are weighted uniformly.
func LandmarkWeights(k int) []float32 {
	w := make([]float32, k)
	for i := range w {
		w[i] = 1
	}
	if k == 68 {
		for i := 28; i < 31; i++ {
			w[i] = landmarkEmphasis
		}
		for i := k - 8; i < k; i++ {
			w[i] = landmarkEmphasis
		}
	}
	return w
}

// LandmarkLoss is the weighted squared distance between [N, K, 2] landmark
// sets, averaged over N*K points.
func LandmarkLoss(pred, gt *tensor.Tensor) *tensor.Tensor {
	n, k := pred.Dim(0), pred.Dim(1)
	weights, err := tensor.FromSlice(LandmarkWeights(k), tensor.Shape{1, k}, pred.Backend())
	if err != nil {
		panic(err)
	}
	dist := pred.Sub(gt).Square().SumDim(-1, false).Mul(weights)
	return dist.Sum().MulScalar(1 / float32(n*k))
}
