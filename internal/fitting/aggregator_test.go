package fitting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mvfit/internal/backend/cpu"
	"github.com/born-ml/mvfit/internal/tensor"
)

const testSize = 4

// testViews returns n views of a gray 4x4 image with full masks and
// k landmarks.
func testViews(t *testing.T, b tensor.Backend, n, k int) []ViewData {
	t.Helper()
	views := make([]ViewData, n)
	for i := range views {
		lm := make([]float32, 2*k)
		for j := range lm {
			lm[j] = float32(j % testSize)
		}
		landmarks, err := tensor.FromSlice(lm, tensor.Shape{1, k, 2}, b)
		require.NoError(t, err)
		transform, err := tensor.FromSlice([]float32{1, 0, 0, 0, 1, 0}, tensor.Shape{1, 2, 3}, b)
		require.NoError(t, err)

		views[i] = ViewData{
			Image:     tensor.Full(tensor.Shape{1, 3, testSize, testSize}, 0.5, b),
			SkinMask:  tensor.Ones(tensor.Shape{1, 1, testSize, testSize}, b),
			ParseMask: tensor.Ones(tensor.Shape{1, 1, testSize, testSize}, b),
			Landmarks: landmarks,
			Transform: transform,
		}
	}
	return views
}

// testPrediction renders a constant face covering the whole image.
func testPrediction(b tensor.Backend, views, k int, face float32) *Prediction {
	return &Prediction{
		Coeffs: Coeffs{
			ID:    tensor.Full(tensor.Shape{views, IDDim}, 0.1, b),
			Exp:   tensor.Full(tensor.Shape{views, ExpDim}, 0.2, b),
			Gamma: tensor.Zeros(tensor.Shape{views, GammaDim}, b),
		},
		Landmarks: tensor.Zeros(tensor.Shape{views, k, 2}, b),
		FaceMask:  tensor.Ones(tensor.Shape{views, 1, testSize, testSize}, b),
		Face:      tensor.Full(tensor.Shape{views, 3, testSize, testSize}, face, b),
	}
}

// pyramid is a one-level perceptual net returning the images themselves.
type pyramid struct{}

func (pyramid) Features(images *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{images}
}

func TestNewSupervision(t *testing.T) {
	b := cpu.New()
	views := testViews(t, b, 3, 5)

	sup, err := NewSupervision(b, views)
	require.NoError(t, err)
	assert.Equal(t, 3, sup.Views())
	assert.Equal(t, testSize, sup.ImageHeight())
	assert.Equal(t, []int{3, 5, 2}, []int(sup.Landmarks.Shape()))
	assert.Equal(t, []int{3, 2, 3}, []int(sup.Transforms.Shape()))
	assert.False(t, sup.Images.Raw().SharesStorage(views[0].Image.Raw()))
}

func TestNewSupervision_Invalid(t *testing.T) {
	b := cpu.New()

	_, err := NewSupervision(b, nil)
	assert.ErrorIs(t, err, ErrNoViews)

	views := testViews(t, b, 2, 5)
	views[1].SkinMask = nil
	_, err = NewSupervision(b, views)
	assert.ErrorIs(t, err, ErrInvalidSupervision)

	views = testViews(t, b, 2, 5)
	views[1].Landmarks = tensor.Zeros(tensor.Shape{1, 6, 2}, b)
	_, err = NewSupervision(b, views)
	assert.ErrorIs(t, err, ErrInvalidSupervision)

	views = testViews(t, b, 1, 5)
	views[0].ParseMask = tensor.Ones(tensor.Shape{1, 1, testSize, testSize + 1}, b)
	_, err = NewSupervision(b, views)
	assert.ErrorIs(t, err, ErrInvalidSupervision)
}

func TestAggregator_Gating(t *testing.T) {
	b := cpu.New()
	sup, err := NewSupervision(b, testViews(t, b, 2, 5))
	require.NoError(t, err)
	pred := testPrediction(b, 2, 5, 0.5)

	tests := []struct {
		name    string
		weights Weights
		want    []string
	}{
		{"none", Weights{}, []string{"all"}},
		{"color", Weights{Color: 1}, []string{"all", "color"}},
		{"lm", Weights{Landmark: 2}, []string{"all", "lm"}},
		{"reg_exp only", Weights{RegExp: 1}, []string{"all", "reg_exp"}},
		{"reg_id and reg_gamma", Weights{RegID: 1, RegGamma: 1}, []string{"all", "reg_id", "reg_gamma"}},
		{"zero weight stays out", Weights{RegExp: 1, RegGamma: 0, Color: 0}, []string{"all", "reg_exp"}},
		{"order", Weights{Landmark: 1, VGG: 1, Color: 1, RegGamma: 1, RegID: 1},
			[]string{"all", "color", "vgg", "reg_id", "reg_gamma", "lm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Weights = tt.weights
			agg, err := NewAggregator(cfg, Collaborators{Perceptual: pyramid{}}, sup)
			require.NoError(t, err)

			l, err := agg.Compute(pred, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Names())
		})
	}
}

func TestAggregator_TotalIsWeightedSum(t *testing.T) {
	b := cpu.New()
	sup, err := NewSupervision(b, testViews(t, b, 2, 5))
	require.NoError(t, err)
	pred := testPrediction(b, 2, 5, 0.8)

	cfg := DefaultConfig()
	cfg.Weights = Weights{Color: 2, VGG: 0.5, RegID: 0.1, RegExp: 0.01, Landmark: 3}
	agg, err := NewAggregator(cfg, Collaborators{Perceptual: pyramid{}}, sup)
	require.NoError(t, err)

	l, err := agg.Compute(pred, nil)
	require.NoError(t, err)
	require.True(t, l.Finite())

	var sum float64
	for _, term := range l.Terms[1:] {
		sum += term.Weight * float64(term.Value.Item())
	}
	total, ok := l.Value(TotalTermName)
	require.True(t, ok)
	assert.InDelta(t, sum, total, 1e-4)

	// Face 0.8 over image 0.5 on all three channels.
	color, ok := l.Value("color")
	require.True(t, ok)
	assert.InDelta(t, 0.3*1.7320508, color, 1e-4)

	vgg, _ := l.Value("vgg")
	assert.InDelta(t, 0.3/32, vgg, 1e-5) // single level, weighted by the first default layer weight

	regID, _ := l.Value("reg_id")
	assert.InDelta(t, 0.01*IDDim, regID, 1e-3)

	_, ok = l.Value("feat")
	assert.False(t, ok)

	// reg_gamma has weight 0 and is neither logged nor summed.
	_, ok = l.Value("reg_gamma")
	assert.False(t, ok)
	assert.Equal(t, []string{"all", "color", "vgg", "reg_id", "reg_exp", "lm"}, l.Names())
}

func TestAggregator_LandmarkShapeMismatch(t *testing.T) {
	b := cpu.New()
	sup, err := NewSupervision(b, testViews(t, b, 1, 5))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Landmark = 1
	agg, err := NewAggregator(cfg, Collaborators{}, sup)
	require.NoError(t, err)

	_, err = agg.Compute(testPrediction(b, 1, 68, 0.5), nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNewAggregator_MissingCollaborators(t *testing.T) {
	b := cpu.New()
	sup, err := NewSupervision(b, testViews(t, b, 1, 5))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Feat = 1
	_, err = NewAggregator(cfg, Collaborators{}, sup)
	assert.ErrorIs(t, err, ErrMissingCollaborator)

	cfg = DefaultConfig()
	cfg.VGG = 1
	_, err = NewAggregator(cfg, Collaborators{}, sup)
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestAggregator_Composite(t *testing.T) {
	b := cpu.New()
	sup, err := NewSupervision(b, testViews(t, b, 1, 5))
	require.NoError(t, err)

	agg, err := NewAggregator(DefaultConfig(), Collaborators{}, sup)
	require.NoError(t, err)

	pred := testPrediction(b, 1, 5, 1)
	half := pred.FaceMask.Data()
	for i := range half {
		if i%2 == 0 {
			half[i] = 0
		}
	}
	comp := agg.Composite(pred)
	assert.InDelta(t, 0.5, comp.At(0, 0, 0, 0), 1e-6)
	assert.InDelta(t, 1, comp.At(0, 2, 0, 1), 1e-6)
}

func TestLosses_Formatting(t *testing.T) {
	b := cpu.New()
	l := &Losses{
		Total: tensor.Scalar(1.5, b),
		Terms: []Term{
			{Name: TotalTermName, Weight: 1, Value: tensor.Scalar(1.5, b)},
			{Name: "lm", Weight: 0.5, Value: tensor.Scalar(3, b)},
		},
	}
	names, values := l.Scalars()
	assert.Equal(t, []string{"loss/all", "loss/lm"}, names)
	assert.Equal(t, []float64{1.5, 3}, values)
	assert.Equal(t, "[loss/all: 1.50000][loss/lm: 3.00000]", l.String())
}
