package losses

import (
	"github.com/born-ml/mvfit/internal/tensor"
)

// photoEps keeps the per-pixel distance differentiable at zero.
const photoEps = 1e-8

// PhotoLoss is the masked per-pixel color distance between two NCHW images:
//
//	Σ sqrt(Σ_c (pred - target)² + ε) * mask / max(Σ mask, 1)
//
// mask is [N, 1, H, W] and is treated as a constant.
func PhotoLoss(pred, target, mask *tensor.Tensor) *tensor.Tensor {
	dist := pred.Sub(target).Square().SumDim(1, true).AddScalar(photoEps).Sqrt()
	return dist.Mul(mask).Sum().MulScalar(1 / maskArea(mask))
}

func maskArea(mask *tensor.Tensor) float32 {
	var area float64
	for _, v := range mask.Data() {
		area += float64(v)
	}
	return float32(max(area, 1))
}
