package losses

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/mvfit/internal/tensor"
)

// alignTemplate is the 5-point reference layout of a 112x112 recognition crop:
// left eye, right eye, nose tip, left and right mouth corners.
var alignTemplate = [5][2]float64{
	{38.2946, 51.6963},
	{73.5318, 51.5014},
	{56.0252, 71.7366},
	{41.5493, 92.3655},
	{70.7299, 92.2041},
}

// Extract5 reduces a 68-point landmark set (flat x,y pairs) to the 5 points
// of alignTemplate.
func Extract5(lm []float32) [5][2]float64 {
	pt := func(i int) [2]float64 { return [2]float64{float64(lm[2*i]), float64(lm[2*i+1])} }
	mid := func(i, j int) [2]float64 {
		a, b := pt(i), pt(j)
		return [2]float64{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
	}
	return [5][2]float64{mid(36, 39), mid(42, 45), pt(30), pt(48), pt(54)}
}

// EstimateNorm computes, for each [68, 2] landmark set of lm ([N, 68, 2]),
// the 2x3 similarity transform that maps the face onto the recognition crop.
// Landmark y is measured from the bottom of an imageHeight-row image.
// The result is a constant [N, 2, 3] tensor on lm's backend.
func EstimateNorm(lm *tensor.Tensor, imageHeight int) *tensor.Tensor {
	n, k := lm.Dim(0), lm.Dim(1)
	if k != 68 {
		panic(fmt.Sprintf("EstimateNorm: need 68 landmarks, got %d", k))
	}

	data := lm.Data()
	out := make([]float32, 0, n*6)
	for i := 0; i < n; i++ {
		src := Extract5(data[i*k*2 : (i+1)*k*2])
		for j := range src {
			src[j][1] = float64(imageHeight) - 1 - src[j][1]
		}
		m := SimilarityTransform(src, alignTemplate)
		for _, v := range m {
			out = append(out, float32(v))
		}
	}

	t, err := tensor.FromSlice(out, tensor.Shape{n, 2, 3}, lm.Backend())
	if err != nil {
		panic(err)
	}
	return t
}

// SimilarityTransform returns the least-squares rotation+uniform scale+
// translation mapping src onto dst, as row-major [a -b tx; b a ty].
//
// It follows Umeyama: with centered points and covariance C = U·D·Vᵀ, the
// rotation is U·S·Vᵀ where S flips the last axis when det(U)·det(V) < 0,
// and the scale is tr(D·S) over the source variance. A degenerate source
// set yields the identity.
func SimilarityTransform(src, dst [5][2]float64) [6]float64 {
	identity := [6]float64{1, 0, 0, 0, 1, 0}
	n := float64(len(src))

	var sx, sy, dx, dy float64
	for i := range src {
		sx += src[i][0]
		sy += src[i][1]
		dx += dst[i][0]
		dy += dst[i][1]
	}
	sx, sy, dx, dy = sx/n, sy/n, dx/n, dy/n

	p := mat.NewDense(len(src), 2, nil)
	q := mat.NewDense(len(src), 2, nil)
	for i := range src {
		p.SetRow(i, []float64{src[i][0] - sx, src[i][1] - sy})
		q.SetRow(i, []float64{dst[i][0] - dx, dst[i][1] - dy})
	}

	variance := mat.Norm(p, 2) // Frobenius
	variance = variance * variance / n
	if variance == 0 {
		return identity
	}

	var cov mat.Dense
	cov.Mul(q.T(), p)
	cov.Scale(1/n, &cov)

	var svd mat.SVD
	if !svd.Factorize(&cov, mat.SVDFull) {
		return identity
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	d := svd.Values(nil)

	flip := 1.0
	if mat.Det(&u)*mat.Det(&v) < 0 {
		flip = -1
	}
	u.Set(0, 1, u.At(0, 1)*flip)
	u.Set(1, 1, u.At(1, 1)*flip)

	var r mat.Dense
	r.Mul(&u, v.T())
	scale := (d[0] + flip*d[1]) / variance

	a, b := scale*r.At(0, 0), scale*r.At(1, 0)
	tx := dx - (a*sx - b*sy)
	ty := dy - (b*sx + a*sy)
	return [6]float64{a, -b, tx, b, a, ty}
}
