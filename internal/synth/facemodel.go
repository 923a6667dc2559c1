package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/mvfit/internal/backend/cpu"
	"github.com/born-ml/mvfit/internal/fitting"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Synthetic face model dimensions.
const (
	NumVertices = 68
	CoeffWidth  = fitting.IDDim + fitting.ExpDim + fitting.AngleDim + fitting.GammaDim + fitting.TransDim
)

// FaceModel is a linear morphable model over 68 vertices that double as
// landmarks. Only roll rotation is modelled.
type FaceModel struct {
	backend   tensor.Backend
	imageSize int
	meanShape *tensor.RawTensor // [1, N*3]
	idBasis   *tensor.RawTensor // [532, N*3]
	expBasis  *tensor.RawTensor // [45, N*3]
	albedo    *tensor.RawTensor // [1, N, 3]
	vertexUV  *tensor.RawTensor // [N, 2]
	head      fitting.Topology
	face      fitting.Topology
}

// NewFaceModel creates a face model projecting into imageSize x imageSize
// images. The bases are drawn from rng.
func NewFaceModel(imageSize int, rng *rand.Rand) *FaceModel {
	shape := meanShape()

	mean := tensor.MustRaw(tensor.Shape{1, NumVertices * 3})
	copy(mean.Data(), shape)

	idBasis := randomRaw(tensor.Shape{fitting.IDDim, NumVertices * 3}, 0.002, rng)
	expBasis := randomRaw(tensor.Shape{fitting.ExpDim, NumVertices * 3}, 0.02, rng)

	albedo := tensor.MustRaw(tensor.Shape{1, NumVertices, 3})
	ad := albedo.Data()
	for i := 0; i < NumVertices; i++ {
		ad[3*i], ad[3*i+1], ad[3*i+2] = 0.8, 0.6, 0.5
	}

	uv := tensor.MustRaw(tensor.Shape{NumVertices, 2})
	ud := uv.Data()
	for i := 0; i < NumVertices; i++ {
		ud[2*i] = (shape[3*i] + 1) / 2
		ud[2*i+1] = (shape[3*i+1] + 1) / 2
	}

	return &FaceModel{
		backend:   cpu.New(),
		imageSize: imageSize,
		meanShape: mean,
		idBasis:   idBasis,
		expBasis:  expBasis,
		albedo:    albedo,
		vertexUV:  uv,
		head:      fanTopology("head", 0, NumVertices-1),
		face:      fanTopology("face", 17, NumVertices-1),
	}
}

// meanShape lays out the 68-point convention on the unit square:
// jaw, brows, nose, eyes, outer and inner lips. y points up.
func meanShape() []float32 {
	pts := make([][2]float64, 0, NumVertices)
	for i := 0; i < 17; i++ {
		a := math.Pi * (1.05 + 0.9*float64(i)/16)
		pts = append(pts, [2]float64{0.7 * math.Cos(a), 0.8 * math.Sin(a)})
	}
	for i := 0; i < 10; i++ {
		x := -0.6 + 0.12*float64(i%5)
		if i >= 5 {
			x = 0.12 + 0.12*float64(i-5)
		}
		pts = append(pts, [2]float64{x, 0.45})
	}
	for i := 0; i < 4; i++ {
		pts = append(pts, [2]float64{0, 0.3 - 0.1*float64(i)})
	}
	for i := 0; i < 5; i++ {
		pts = append(pts, [2]float64{-0.15 + 0.075*float64(i), -0.1})
	}
	for _, cx := range []float64{-0.3, 0.3} {
		for i := 0; i < 6; i++ {
			a := math.Pi - 2*math.Pi*float64(i)/6
			pts = append(pts, [2]float64{cx + 0.12*math.Cos(a), 0.25 + 0.05*math.Sin(a)})
		}
	}
	for i := 0; i < 12; i++ {
		a := math.Pi - 2*math.Pi*float64(i)/12
		pts = append(pts, [2]float64{0.3 * math.Cos(a), -0.4 + 0.1*math.Sin(a)})
	}
	for i := 0; i < 8; i++ {
		a := math.Pi - 2*math.Pi*float64(i)/8
		pts = append(pts, [2]float64{0.18 * math.Cos(a), -0.4 + 0.05*math.Sin(a)})
	}

	out := make([]float32, 0, NumVertices*3)
	for _, p := range pts {
		z := 0.2 * (1 - p[0]*p[0] - p[1]*p[1])
		out = append(out, float32(p[0]), float32(p[1]), float32(z))
	}
	return out
}

// fanTopology triangulates vertices [first, last] as a fan around the nose tip.
func fanTopology(name string, first, last int) fitting.Topology {
	const apex = 30
	var faces [][3]int32
	for i := first; i < last; i++ {
		if i == apex || i+1 == apex {
			continue
		}
		faces = append(faces, [3]int32{apex, int32(i), int32(i + 1)})
	}
	return fitting.Topology{Name: name, Faces: faces}
}

func randomRaw(shape tensor.Shape, scale float64, rng *rand.Rand) *tensor.RawTensor {
	r := tensor.MustRaw(shape)
	data := r.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64() * scale)
	}
	return r
}

// SplitCoeff decodes a [1, 610] coefficient vector laid out as
// id, exp, angle, gamma, trans.
func (m *FaceModel) SplitCoeff(coeffs *tensor.Tensor) (fitting.Coeffs, error) {
	if coeffs.NumElements() != CoeffWidth {
		return fitting.Coeffs{}, fmt.Errorf("coefficient vector has %d elements, want %d", coeffs.NumElements(), CoeffWidth)
	}
	flat := coeffs.Reshape(1, CoeffWidth)

	var c fitting.Coeffs
	offset := 0
	next := func(n int) *tensor.Tensor {
		t := flat.Narrow(1, offset, n)
		offset += n
		return t
	}
	c.ID = next(fitting.IDDim)
	c.Exp = next(fitting.ExpDim)
	c.Angle = next(fitting.AngleDim)
	c.Gamma = next(fitting.GammaDim)
	c.Trans = next(fitting.TransDim)
	return c, nil
}

// ComputeForRender evaluates vertices, albedo, shading, color and the
// projected landmarks for a batch of coefficients.
//
// Shading is 1 + 0.5*gamma_dc per channel; landmarks are the image-space
// projections of all vertices with y measured from the bottom row.
func (m *FaceModel) ComputeForRender(c fitting.Coeffs) fitting.Geometry {
	b := c.ID.Backend()
	v := c.ID.Dim(0)
	n := NumVertices

	shape := tensor.New(m.meanShape, b).
		Add(c.ID.MatMul(tensor.New(m.idBasis, b))).
		Add(c.Exp.MatMul(tensor.New(m.expBasis, b))).
		Reshape(v, n, 3)

	roll := c.Angle.Narrow(1, 2, 1).Reshape(v, 1, 1)
	cos, sin := roll.Cos(), roll.Sin()
	x := shape.Narrow(2, 0, 1)
	y := shape.Narrow(2, 1, 1)
	z := shape.Narrow(2, 2, 1)
	rx := x.Mul(cos).Sub(y.Mul(sin))
	ry := x.Mul(sin).Add(y.Mul(cos))
	vertices := tensor.Cat([]*tensor.Tensor{rx, ry, z}, 2).Add(c.Trans.Reshape(v, 1, 3))

	texture := tensor.New(m.albedo, b).Expand(v, n, 3)
	dc := c.Gamma.Reshape(v, 3, 9).Narrow(2, 0, 1).Transpose()
	shading := dc.MulScalar(0.5).AddScalar(1).Expand(v, n, 3)
	color := texture.Mul(shading)

	scale := float32(m.imageSize) * projectionScale
	center := float32(m.imageSize) / 2
	landmarks := vertices.Narrow(2, 0, 2).MulScalar(scale).AddScalar(center)

	return fitting.Geometry{
		Vertices:  vertices,
		Texture:   texture,
		Shading:   shading,
		Color:     color,
		Landmarks: landmarks,
	}
}

// HeadTopology returns the full fan over all 68 vertices.
func (m *FaceModel) HeadTopology() fitting.Topology { return m.head }

// FaceTopology returns the fan over the inner face (brows to lips).
func (m *FaceModel) FaceTopology() fitting.Topology { return m.face }

// VertexUV returns the per-vertex UV coordinates [N, 2].
func (m *FaceModel) VertexUV() *tensor.Tensor {
	return tensor.New(m.vertexUV, m.backend)
}

// ImageSize returns the side of the rendered images.
func (m *FaceModel) ImageSize() int { return m.imageSize }
