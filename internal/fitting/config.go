package fitting

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// NonFinitePolicy selects what happens when the aggregated loss is NaN or infinite.
type NonFinitePolicy string

// Non-finite loss policies.
const (
	// NonFiniteIgnore applies the step anyway.
	NonFiniteIgnore NonFinitePolicy = "ignore"
	// NonFiniteSkip skips the optimizer update but still advances the step.
	NonFiniteSkip NonFinitePolicy = "skip"
	// NonFiniteFail aborts the run with ErrNonFiniteLoss.
	NonFiniteFail NonFinitePolicy = "fail"
)

// Weights are the loss term weights. A term is computed only when its
// weight is strictly positive.
type Weights struct {
	Feat      float64 `yaml:"w_feat"`
	Color     float64 `yaml:"w_color"`
	VGG       float64 `yaml:"w_vgg"`
	RegID     float64 `yaml:"w_reg_id"`
	RegExp    float64 `yaml:"w_reg_exp"`
	RegGamma  float64 `yaml:"w_reg_gamma"`
	RegLatent float64 `yaml:"w_reg_latent"`
	Landmark  float64 `yaml:"w_lm"`
}

// Config enumerates every recognized fitting option.
type Config struct {
	Weights `yaml:",inline"`

	InitialLR        float64 `yaml:"initial_lr"`
	TexLRScale       float64 `yaml:"tex_lr_scale"`
	PoseLRScale      float64 `yaml:"pose_lr_scale"`
	LRRampdownLength float64 `yaml:"lr_rampdown_length"`
	TotalStep        int     `yaml:"total_step"`
	PrintFreq        int     `yaml:"print_freq"`
	VisualFreq       int     `yaml:"visual_freq"`

	AdamBetas [2]float64 `yaml:"adam_betas"`
	AdamEps   float64    `yaml:"adam_eps"`

	// VGGLayerWeights weights the perceptual feature pyramid; nil uses
	// losses.DefaultVGGLayerWeights.
	VGGLayerWeights []float32 `yaml:"vgg_layer_weights"`

	NonFinite NonFinitePolicy `yaml:"non_finite"`
}

// DefaultConfig returns the configuration with every option at its default.
// All loss weights default to 0.
func DefaultConfig() Config {
	return Config{
		InitialLR:        0.01,
		TexLRScale:       0.05,
		PoseLRScale:      0.05,
		LRRampdownLength: 0.25,
		TotalStep:        100,
		PrintFreq:        10,
		VisualFreq:       10,
		AdamBetas:        [2]float64{0.9, 0.999},
		AdamEps:          1e-8,
		NonFinite:        NonFiniteIgnore,
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: config path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every option. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	weights := []struct {
		name string
		v    float64
	}{
		{"w_feat", c.Feat}, {"w_color", c.Color}, {"w_vgg", c.VGG},
		{"w_reg_id", c.RegID}, {"w_reg_exp", c.RegExp}, {"w_reg_gamma", c.RegGamma},
		{"w_reg_latent", c.RegLatent}, {"w_lm", c.Landmark},
		{"initial_lr", c.InitialLR}, {"tex_lr_scale", c.TexLRScale}, {"pose_lr_scale", c.PoseLRScale},
		{"adam_eps", c.AdamEps},
	}
	for _, w := range weights {
		if math.IsNaN(w.v) || math.IsInf(w.v, 0) || w.v < 0 {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %g", ErrInvalidConfig, w.name, w.v)
		}
	}

	switch {
	case !(c.LRRampdownLength > 0 && c.LRRampdownLength <= 1):
		return fmt.Errorf("%w: lr_rampdown_length must be in (0, 1], got %g", ErrInvalidConfig, c.LRRampdownLength)
	case c.TotalStep <= 0:
		return fmt.Errorf("%w: total_step must be positive, got %d", ErrInvalidConfig, c.TotalStep)
	case c.PrintFreq <= 0:
		return fmt.Errorf("%w: print_freq must be positive, got %d", ErrInvalidConfig, c.PrintFreq)
	case c.VisualFreq <= 0:
		return fmt.Errorf("%w: visual_freq must be positive, got %d", ErrInvalidConfig, c.VisualFreq)
	}

	for i, b := range c.AdamBetas {
		if !(b > 0 && b < 1) {
			return fmt.Errorf("%w: adam_betas[%d] must be in (0, 1), got %g", ErrInvalidConfig, i, b)
		}
	}

	switch c.NonFinite {
	case NonFiniteIgnore, NonFiniteSkip, NonFiniteFail:
	default:
		return fmt.Errorf("%w: non_finite must be ignore, skip or fail, got %q", ErrInvalidConfig, c.NonFinite)
	}

	for i, w := range c.VGGLayerWeights {
		if w < 0 || math.IsNaN(float64(w)) {
			return fmt.Errorf("%w: vgg_layer_weights[%d] must be non-negative, got %g", ErrInvalidConfig, i, w)
		}
	}
	return nil
}
