package fitting

import (
	"fmt"

	"github.com/born-ml/mvfit/internal/tensor"
)

// Supervision is the per-view data stacked along the batch dimension.
// It is fixed for the whole run.
type Supervision struct {
	Images     *tensor.Tensor // [V, 3, H, W]
	SkinMasks  *tensor.Tensor // [V, 1, H, W]
	ParseMasks *tensor.Tensor // [V, 1, H, W]
	Landmarks  *tensor.Tensor // [V, K, 2]
	Transforms *tensor.Tensor // [V, 2, 3]

	// ImageFeatures are the recognition features of Images, computed once
	// when the identity loss is active.
	ImageFeatures *tensor.Tensor
}

// NewSupervision validates views and stacks them on backend b.
func NewSupervision(b tensor.Backend, views []ViewData) (*Supervision, error) {
	if len(views) == 0 {
		return nil, ErrNoViews
	}

	first := views[0]
	if first.Image == nil || first.Landmarks == nil {
		return nil, fmt.Errorf("%w: view 0: image and landmarks are required", ErrInvalidSupervision)
	}
	h, w := first.Image.Dim(-2), first.Image.Dim(-1)
	k := first.Landmarks.Dim(1)

	want := map[string]tensor.Shape{
		"image":      {1, 3, h, w},
		"skin mask":  {1, 1, h, w},
		"parse mask": {1, 1, h, w},
		"landmarks":  {1, k, 2},
		"transform":  {1, 2, 3},
	}

	var images, skins, parses, lms, trans []*tensor.Tensor
	for i, v := range views {
		fields := []struct {
			name string
			t    *tensor.Tensor
			dst  *[]*tensor.Tensor
		}{
			{"image", v.Image, &images},
			{"skin mask", v.SkinMask, &skins},
			{"parse mask", v.ParseMask, &parses},
			{"landmarks", v.Landmarks, &lms},
			{"transform", v.Transform, &trans},
		}
		for _, f := range fields {
			if f.t == nil {
				return nil, fmt.Errorf("%w: view %d: missing %s", ErrInvalidSupervision, i, f.name)
			}
			if !f.t.Shape().Equal(want[f.name]) {
				return nil, fmt.Errorf("%w: view %d: %s has shape %v, want %v",
					ErrInvalidSupervision, i, f.name, f.t.Shape(), want[f.name])
			}
			*f.dst = append(*f.dst, tensor.New(f.t.Raw(), b))
		}
	}

	return &Supervision{
		Images:     stackViews(images),
		SkinMasks:  stackViews(skins),
		ParseMasks: stackViews(parses),
		Landmarks:  stackViews(lms),
		Transforms: stackViews(trans),
	}, nil
}

// stackViews concatenates [1, ...] tensors into a [V, ...] batch that owns
// its storage.
func stackViews(ts []*tensor.Tensor) *tensor.Tensor {
	if len(ts) == 1 {
		return ts[0].Clone()
	}
	return tensor.Cat(ts, 0).Detach()
}

// Views returns the number of stacked views.
func (s *Supervision) Views() int {
	return s.Images.Dim(0)
}

// ImageHeight returns H.
func (s *Supervision) ImageHeight() int {
	return s.Images.Dim(2)
}
