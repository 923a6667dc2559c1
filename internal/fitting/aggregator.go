package fitting

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/mvfit/internal/losses"
	"github.com/born-ml/mvfit/internal/tensor"
)

// TotalTermName is the name under which the weighted sum is reported.
const TotalTermName = "all"

// Term is one reported loss value.
type Term struct {
	Name   string
	Weight float64
	Value  *tensor.Tensor // 0-D
}

// Losses is the outcome of one loss evaluation. Terms[0] is always the
// weighted total; the remaining terms follow in evaluation order.
type Losses struct {
	Total *tensor.Tensor
	Terms []Term
}

// Names returns the reported term names, starting with "all".
func (l *Losses) Names() []string {
	names := make([]string, len(l.Terms))
	for i, t := range l.Terms {
		names[i] = t.Name
	}
	return names
}

// Value returns the scalar value of the named term.
func (l *Losses) Value(name string) (float64, bool) {
	for _, t := range l.Terms {
		if t.Name == name {
			return float64(t.Value.Item()), true
		}
	}
	return 0, false
}

// Scalars returns "loss/<name>" keys and values for the logger.
func (l *Losses) Scalars() ([]string, []float64) {
	names := make([]string, len(l.Terms))
	values := make([]float64, len(l.Terms))
	for i, t := range l.Terms {
		names[i] = "loss/" + t.Name
		values[i] = float64(t.Value.Item())
	}
	return names, values
}

// String formats the terms as "[loss/all: 0.12345][loss/lm: 0.01000]".
func (l *Losses) String() string {
	var sb strings.Builder
	names, values := l.Scalars()
	for i := range names {
		fmt.Fprintf(&sb, "[%s: %.5f]", names[i], values[i])
	}
	return sb.String()
}

// Finite reports whether the total is neither NaN nor infinite.
func (l *Losses) Finite() bool {
	v := float64(l.Total.Item())
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Aggregator computes the enabled loss terms and their weighted sum.
type Aggregator struct {
	weights    Weights
	vggWeights []float32
	recog      RecognitionNet
	perceptual PerceptualNet
	sup        *Supervision
}

// NewAggregator checks that every enabled term has its collaborator and
// precomputes the recognition features of the input images. It must be
// called while the tape is not recording.
func NewAggregator(cfg Config, c Collaborators, sup *Supervision) (*Aggregator, error) {
	a := &Aggregator{
		weights:    cfg.Weights,
		vggWeights: cfg.VGGLayerWeights,
		recog:      c.Recognition,
		perceptual: c.Perceptual,
		sup:        sup,
	}
	if a.vggWeights == nil {
		a.vggWeights = losses.DefaultVGGLayerWeights
	}

	if cfg.Feat > 0 {
		if c.Recognition == nil {
			return nil, fmt.Errorf("%w: recognition network required when w_feat > 0", ErrMissingCollaborator)
		}
		if c.Recognition.Training() {
			return nil, ErrRecognitionTraining
		}
		sup.ImageFeatures = c.Recognition.Forward(sup.Images, sup.Transforms).Detach()
	}
	if cfg.VGG > 0 && c.Perceptual == nil {
		return nil, fmt.Errorf("%w: perceptual network required when w_vgg > 0", ErrMissingCollaborator)
	}
	return a, nil
}

// Composite insets the rendered face into the input images using the
// detached face mask: face*m + (1-m)*image.
func (a *Aggregator) Composite(pred *Prediction) *tensor.Tensor {
	m := pred.FaceMask.Detach()
	inv := m.MulScalar(-1).AddScalar(1)
	return pred.Face.Mul(m).Add(inv.Mul(a.sup.Images))
}

// Compute evaluates the terms whose weight is strictly positive, in the
// order feat, color, vgg, reg_id/reg_exp/reg_gamma, reg_latent, lm.
func (a *Aggregator) Compute(pred *Prediction, s *ParameterState) (*Losses, error) {
	w := a.weights
	sup := a.sup
	b := pred.Face.Backend()

	total := tensor.Scalar(0, b)
	var terms []Term
	add := func(name string, weight float64, value *tensor.Tensor) {
		terms = append(terms, Term{Name: name, Weight: weight, Value: value})
		total = total.Add(value.MulScalar(float32(weight)))
	}

	faceMask := pred.FaceMask.Detach()
	composite := a.Composite(pred)

	if w.Feat > 0 {
		if a.recog.Training() {
			return nil, ErrRecognitionTraining
		}
		transforms := sup.Transforms
		if pred.Landmarks.Dim(1) == 68 {
			transforms = losses.EstimateNorm(pred.Landmarks.Detach(), sup.ImageHeight())
		}
		feat := a.recog.Forward(composite, transforms)
		add("feat", w.Feat, losses.PerceptualLoss(feat, sup.ImageFeatures))
	}

	if w.Color > 0 {
		mask := faceMask.Mul(sup.ParseMasks).Mul(sup.SkinMasks)
		add("color", w.Color, losses.PhotoLoss(composite, sup.Images, mask))
	}

	if w.VGG > 0 {
		mask := faceMask.Mul(sup.ParseMasks)
		add("vgg", w.VGG, losses.VGGLoss(composite.Mul(mask), sup.Images.Mul(mask), a.perceptual, a.vggWeights))
	}

	if w.RegID > 0 || w.RegExp > 0 || w.RegGamma > 0 {
		id, exp, gamma := losses.CoeffsRegLoss(pred.Coeffs.ID, pred.Coeffs.Exp, pred.Coeffs.Gamma)
		for _, r := range []struct {
			name   string
			weight float64
			value  *tensor.Tensor
		}{
			{"reg_id", w.RegID, id},
			{"reg_exp", w.RegExp, exp},
			{"reg_gamma", w.RegGamma, gamma},
		} {
			if r.weight > 0 {
				add(r.name, r.weight, r.value)
			}
		}
	}

	if w.RegLatent > 0 {
		add("reg_latent", w.RegLatent, losses.GeocrossLoss(s.LatentW()))
	}

	if w.Landmark > 0 {
		if !pred.Landmarks.Shape().Equal(sup.Landmarks.Shape()) {
			return nil, fmt.Errorf("%w: predicted landmarks %v, supervision %v",
				ErrShapeMismatch, pred.Landmarks.Shape(), sup.Landmarks.Shape())
		}
		add("lm", w.Landmark, losses.LandmarkLoss(pred.Landmarks, sup.Landmarks))
	}

	all := append([]Term{{Name: TotalTermName, Weight: 1, Value: total}}, terms...)
	return &Losses{Total: total, Terms: all}, nil
}
