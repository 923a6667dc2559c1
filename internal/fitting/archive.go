package fitting

import (
	"fmt"
	"strconv"

	"github.com/born-ml/mvfit/internal/serialization"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Tensor names used in SafeTensors archives.
const (
	ResultCoeffsName  = "coeffs"
	ResultLatentZName = "latent_z"
	ResultLatentWName = "latent_w"
	InitZName         = "init_z"
	metaViews         = "views"
)

func viewTensorName(view int, field string) string {
	return "view." + strconv.Itoa(view) + "." + field
}

// Problem is a serializable fitting input: per-view supervision, one
// initial coefficient vector per view, and an optional initial z.
type Problem struct {
	Views      []ViewData
	InitCoeffs []*tensor.Tensor
	InitZ      *tensor.Tensor
}

func (p *Problem) fields(v int) map[string]*tensor.Tensor {
	d := p.Views[v]
	return map[string]*tensor.Tensor{
		"image":       d.Image,
		"skin_mask":   d.SkinMask,
		"parse_mask":  d.ParseMask,
		"landmarks":   d.Landmarks,
		"transform":   d.Transform,
		"init_coeffs": p.InitCoeffs[v],
	}
}

// SaveProblem writes p to a SafeTensors file.
func SaveProblem(path string, p *Problem) error {
	if len(p.Views) != len(p.InitCoeffs) {
		return fmt.Errorf("%w: %d views, %d initial coefficient vectors",
			ErrViewCountMismatch, len(p.Views), len(p.InitCoeffs))
	}

	tensors := make(map[string]*tensor.RawTensor)
	for v := range p.Views {
		for field, t := range p.fields(v) {
			if t == nil {
				return fmt.Errorf("%w: view %d: missing %s", ErrInvalidSupervision, v, field)
			}
			tensors[viewTensorName(v, field)] = t.Raw()
		}
	}
	if p.InitZ != nil {
		tensors[InitZName] = p.InitZ.Raw()
	}

	meta := map[string]string{metaViews: strconv.Itoa(len(p.Views))}
	return serialization.WriteSafeTensors(path, tensors, meta)
}

// LoadProblem reads a problem written by SaveProblem onto backend b.
func LoadProblem(path string, b tensor.Backend) (*Problem, error) {
	archive, err := serialization.ReadSafeTensors(path)
	if err != nil {
		return nil, err
	}

	n, err := strconv.Atoi(archive.Metadata[metaViews])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: %s: bad view count %q", ErrInvalidSupervision, path, archive.Metadata[metaViews])
	}

	get := func(name string) (*tensor.Tensor, error) {
		raw, ok := archive.Tensors[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: missing tensor %q", ErrInvalidSupervision, path, name)
		}
		return tensor.New(raw, b), nil
	}

	p := &Problem{}
	for v := 0; v < n; v++ {
		var d ViewData
		var coeffs *tensor.Tensor
		targets := []struct {
			field string
			dst   **tensor.Tensor
		}{
			{"image", &d.Image},
			{"skin_mask", &d.SkinMask},
			{"parse_mask", &d.ParseMask},
			{"landmarks", &d.Landmarks},
			{"transform", &d.Transform},
			{"init_coeffs", &coeffs},
		}
		for _, t := range targets {
			if *t.dst, err = get(viewTensorName(v, t.field)); err != nil {
				return nil, err
			}
		}
		p.Views = append(p.Views, d)
		p.InitCoeffs = append(p.InitCoeffs, coeffs)
	}

	if raw, ok := archive.Tensors[InitZName]; ok {
		p.InitZ = tensor.New(raw, b)
	}
	return p, nil
}

// SaveResult writes the fitted coefficients and latents with metadata.
func SaveResult(path string, r *Result, metadata map[string]string) error {
	tensors := map[string]*tensor.RawTensor{
		ResultCoeffsName:  r.Coeffs.Raw(),
		ResultLatentZName: r.LatentZ.Raw(),
		ResultLatentWName: r.LatentW.Raw(),
	}
	return serialization.WriteSafeTensors(path, tensors, metadata)
}

// LoadResult reads a result written by SaveResult onto backend b.
func LoadResult(path string, b tensor.Backend) (*Result, map[string]string, error) {
	archive, err := serialization.ReadSafeTensors(path)
	if err != nil {
		return nil, nil, err
	}
	r := &Result{}
	for name, dst := range map[string]**tensor.Tensor{
		ResultCoeffsName:  &r.Coeffs,
		ResultLatentZName: &r.LatentZ,
		ResultLatentWName: &r.LatentW,
	} {
		raw, ok := archive.Tensors[name]
		if !ok {
			return nil, nil, fmt.Errorf("%s: missing tensor %q", path, name)
		}
		*dst = tensor.New(raw, b)
	}
	return r, archive.Metadata, nil
}
