package losses

import "github.com/born-ml/mvfit/internal/tensor"

// shBands is the number of spherical-harmonics coefficients per color channel.
const shBands = 9

// CoeffsRegLoss returns the coefficient priors:
//
//	id:    Σ id² / N
//	exp:   Σ exp² / N
//	gamma: mean((gamma - mean_rgb(gamma))²), gamma viewed as [N, 3, 9]
//
// The gamma term pulls the illumination toward monochrome light.
func CoeffsRegLoss(id, exp, gamma *tensor.Tensor) (idLoss, expLoss, gammaLoss *tensor.Tensor) {
	idLoss = id.Square().Sum().MulScalar(1 / float32(id.Dim(0)))
	expLoss = exp.Square().Sum().MulScalar(1 / float32(exp.Dim(0)))

	g := gamma.Reshape(gamma.Dim(0), 3, shBands)
	mean := g.MeanDim(1, true)
	gammaLoss = g.Sub(mean).Square().Mean()

	return idLoss, expLoss, gammaLoss
}
