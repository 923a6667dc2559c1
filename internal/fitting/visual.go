package fitting

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/born-ml/mvfit/internal/tensor"
)

var (
	gtLandmarkColor   = color.RGBA{B: 255, A: 255}
	predLandmarkColor = color.RGBA{R: 255, A: 255}
	parseOverlayColor = color.RGBA{R: 255, G: 128, A: 255}
)

// VisualName is the image tag of the progress snapshot.
const VisualName = "vis"

// visualPanel builds the progress snapshot of view 0 as a horizontal strip:
// input, skin mask, parse overlay, landmarks over the composited face (gt
// blue, predicted red), composited face, head render and the UV map
// resampled to the image size.
func visualPanel(sup *Supervision, pred *Prediction, composite *tensor.Tensor) image.Image {
	h, w := sup.Images.Dim(2), sup.Images.Dim(3)

	input := tensorImage(sup.Images, 0)
	skin := tensorImage(sup.SkinMasks, 0)
	parse := overlayMask(input, sup.ParseMasks, 0.5)
	face := tensorImage(composite, 0)

	lm := cloneRGBA(face)
	drawLandmarks(lm, sup.Landmarks, gtLandmarkColor)
	drawLandmarks(lm, pred.Landmarks, predLandmarkColor)

	head := tensorImage(pred.Head, 0)
	uv := areaResize(tensorImage(pred.UVMap, 0), w, h)

	tiles := []*image.RGBA{input, skin, parse, lm, face, head, uv}
	out := image.NewRGBA(image.Rect(0, 0, w*len(tiles), h))
	for i, tile := range tiles {
		r := image.Rect(i*w, 0, (i+1)*w, h)
		draw.Draw(out, r, tile, image.Point{}, draw.Src)
	}
	return out
}

// tensorImage converts one view of an NCHW tensor with 1 or 3 channels in
// [0, 1] into an RGBA image. Values are clamped.
func tensorImage(t *tensor.Tensor, view int) *image.RGBA {
	c, h, w := t.Dim(1), t.Dim(2), t.Dim(3)
	data := t.Data()
	plane := h * w
	base := view * c * plane

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			var px [3]uint8
			for ch := 0; ch < 3; ch++ {
				src := ch
				if c == 1 {
					src = 0
				}
				px[ch] = toByte(data[base+src*plane+i])
			}
			img.SetRGBA(x, y, color.RGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	return img
}

func toByte(v float32) uint8 {
	switch {
	case v != v, v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// overlayMask blends parseOverlayColor into img where the mask is set.
func overlayMask(img *image.RGBA, mask *tensor.Tensor, alpha float32) *image.RGBA {
	out := cloneRGBA(img)
	h, w := mask.Dim(2), mask.Dim(3)
	data := mask.Data()[:h*w]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := data[y*w+x] * alpha
			if m <= 0 {
				continue
			}
			p := out.RGBAAt(x, y)
			blend := func(a, b uint8) uint8 {
				return uint8(float32(a)*(1-m) + float32(b)*m)
			}
			out.SetRGBA(x, y, color.RGBA{
				R: blend(p.R, parseOverlayColor.R),
				G: blend(p.G, parseOverlayColor.G),
				B: blend(p.B, parseOverlayColor.B),
				A: 255,
			})
		}
	}
	return out
}

// drawLandmarks marks view 0's landmarks as 3x3 squares. Landmark y is
// measured from the bottom row.
func drawLandmarks(img *image.RGBA, lm *tensor.Tensor, c color.RGBA) {
	k := lm.Dim(1)
	data := lm.Data()[:k*2]
	bounds := img.Bounds()
	for i := 0; i < k; i++ {
		x := int(data[2*i] + 0.5)
		y := bounds.Dy() - 1 - int(data[2*i+1]+0.5)
		r := image.Rect(x-1, y-1, x+2, y+2).Intersect(bounds)
		draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
	}
}

// areaResize resamples src to w x h by averaging the source pixels covered
// by each destination pixel.
func areaResize(src *image.RGBA, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == w && sh == h {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := y*sh/h, max((y+1)*sh/h, y*sh/h+1)
		for x := 0; x < w; x++ {
			x0, x1 := x*sw/w, max((x+1)*sw/w, x*sw/w+1)
			var r, g, b, n int
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					p := src.RGBAAt(sb.Min.X+sx, sb.Min.Y+sy)
					r += int(p.R)
					g += int(p.G)
					b += int(p.B)
					n++
				}
			}
			dst.SetRGBA(x, y, color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255})
		}
	}
	return dst
}
