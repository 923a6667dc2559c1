package losses

import "github.com/born-ml/mvfit/internal/tensor"

const geocrossEps = 1e-9

// GeocrossLoss penalizes the pairwise geodesic spread of the per-layer
// latents of a [N, L, D] code, keeping them near one point of the prior
// manifold:
//
//	A = |x_i - x_j|, B = |x_i + x_j|, d = 2·atan2(A, B)
//	loss = Σ_n mean_ij(d² · D) / 8
//
// A single latent has no pairs and yields 0.
func GeocrossLoss(latent *tensor.Tensor) *tensor.Tensor {
	n, l, d := latent.Dim(0), latent.Dim(1), latent.Dim(2)
	if l == 1 {
		return tensor.Scalar(0, latent.Backend())
	}

	x := latent.Reshape(n, 1, l, d)
	y := latent.Reshape(n, l, 1, d)

	a := x.Sub(y).Square().SumDim(-1, false).AddScalar(geocrossEps).Sqrt()
	b := x.Add(y).Square().SumDim(-1, false).AddScalar(geocrossEps).Sqrt()
	dist := a.Atan2(b).MulScalar(2)

	perSample := dist.Square().MulScalar(float32(d)).SumDim(2, false).SumDim(1, false)
	return perSample.MulScalar(1 / float32(l*l) / 8).Sum()
}
