package losses

import "github.com/born-ml/mvfit/internal/tensor"

// PerceptualLoss compares L2-normalized identity features [N, F]:
//
//	Σ (1 - <a_i, b_i>) / N
func PerceptualLoss(pred, target *tensor.Tensor) *tensor.Tensor {
	cosine := pred.Mul(target).SumDim(-1, false)
	n := float32(pred.Dim(0))
	return cosine.MulScalar(-1).AddScalar(1).Sum().MulScalar(1 / n)
}
