package synth

import (
	"math"

	"github.com/born-ml/mvfit/internal/fitting"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Renderer splats per-vertex colors into square images.
//
// Coverage is the ellipse spanned by the topology's projected vertices, and
// each covered pixel is a normalized Gaussian blend of the vertex colors.
// Vertex color is the UV map sampled at the vertex UV times its shading.
// Coverage and splat weights are constants of the current vertex positions,
// so gradients reach the UV map and the shading but not the geometry.
type Renderer struct {
	size int
}

// NewRenderer creates a renderer for size x size images.
func NewRenderer(size int) *Renderer {
	return &Renderer{size: size}
}

// Render implements fitting.Renderer. feat is [V, N, 5]: UV coordinates
// then shading. The auxiliary output is the per-pixel splat weight sum
// [V, 1, H, W].
func (r *Renderer) Render(vertices *tensor.Tensor, topology fitting.Topology, feat, uvMap *tensor.Tensor) (mask, aux, image *tensor.Tensor) {
	b := feat.Backend()
	v, n := vertices.Dim(0), vertices.Dim(1)
	hw := r.size * r.size

	used := topologyVertices(topology, n)
	maskRaw := tensor.MustRaw(tensor.Shape{v, 1, r.size, r.size})
	auxRaw := tensor.MustRaw(tensor.Shape{v, 1, r.size, r.size})
	splat := tensor.MustRaw(tensor.Shape{v, hw, n})

	verts := vertices.Data()
	for i := 0; i < v; i++ {
		px := make([][2]float64, len(used))
		for j, idx := range used {
			base := (i*n + idx) * 3
			x, y := project(r.size, verts[base], verts[base+1])
			px[j] = [2]float64{float64(x), float64(y)}
		}
		r.rasterize(px, used, n,
			maskRaw.Data()[i*hw:(i+1)*hw],
			auxRaw.Data()[i*hw:(i+1)*hw],
			splat.Data()[i*hw*n:(i+1)*hw*n])
	}

	albedo := sampleUV(feat, uvMap)
	shading := feat.Narrow(2, 2, 3)
	color := albedo.Mul(shading)

	image = tensor.New(splat, b).
		MatMul(color).
		Transpose().
		Reshape(v, 3, r.size, r.size)

	return tensor.New(maskRaw, b), tensor.New(auxRaw, b), image
}

// rasterize fills one view's coverage mask, weight sum and splat matrix.
// Pixel (col, row) sits at x = col, y = size-1-row.
func (r *Renderer) rasterize(px [][2]float64, used []int, n int, mask, aux, splat []float32) {
	var cx, cy float64
	for _, p := range px {
		cx += p[0]
		cy += p[1]
	}
	cx /= float64(len(px))
	cy /= float64(len(px))

	var rx, ry float64
	for _, p := range px {
		rx = math.Max(rx, math.Abs(p[0]-cx))
		ry = math.Max(ry, math.Abs(p[1]-cy))
	}
	rx, ry = rx*1.1+0.5, ry*1.1+0.5
	sigma := math.Max(rx, ry) / 3
	inv2s2 := 1 / (2 * sigma * sigma)

	weights := make([]float64, len(px))
	for row := 0; row < r.size; row++ {
		y := float64(r.size - 1 - row)
		for col := 0; col < r.size; col++ {
			x := float64(col)
			dx, dy := (x-cx)/rx, (y-cy)/ry
			if dx*dx+dy*dy > 1 {
				continue
			}
			p := row*r.size + col
			mask[p] = 1

			var sum float64
			nearest, best := 0, math.Inf(1)
			for j, q := range px {
				d2 := (x-q[0])*(x-q[0]) + (y-q[1])*(y-q[1])
				weights[j] = math.Exp(-d2 * inv2s2)
				sum += weights[j]
				if d2 < best {
					nearest, best = j, d2
				}
			}
			aux[p] = float32(sum)

			dst := splat[p*n : (p+1)*n]
			if sum < 1e-12 {
				dst[used[nearest]] = 1
				continue
			}
			for j, idx := range used {
				dst[idx] += float32(weights[j] / sum)
			}
		}
	}
}

// sampleUV returns the nearest-texel UV map color of each vertex as [1, N, 3].
func sampleUV(feat, uvMap *tensor.Tensor) *tensor.Tensor {
	b := feat.Backend()
	n := feat.Dim(1)
	hu, wu := uvMap.Dim(2), uvMap.Dim(3)

	sel := tensor.MustRaw(tensor.Shape{hu * wu, n})
	fd := feat.Data()
	sd := sel.Data()
	for j := 0; j < n; j++ {
		u, v := fd[j*5], fd[j*5+1]
		col := clampIndex(int(u*float32(wu)), wu)
		row := clampIndex(int((1-v)*float32(hu)), hu)
		sd[(row*wu+col)*n+j] = 1
	}

	return uvMap.Reshape(3, hu*wu).
		MatMul(tensor.New(sel, b)).
		Transpose().
		Reshape(1, n, 3)
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}

// topologyVertices lists the distinct vertex indices referenced by t.
func topologyVertices(t fitting.Topology, n int) []int {
	seen := make([]bool, n)
	var out []int
	for _, f := range t.Faces {
		for _, idx := range f {
			if i := int(idx); !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	return out
}

// project maps model-space xy to pixel coordinates with y measured from
// the bottom row. It matches the landmark projection of FaceModel.
func project(size int, x, y float32) (float32, float32) {
	scale := float32(size) * projectionScale
	center := float32(size) / 2
	return x*scale + center, y*scale + center
}

const projectionScale = 0.35
