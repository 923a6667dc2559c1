// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fitting

import (
	"github.com/born-ml/mvfit/internal/fitting"
	"github.com/born-ml/mvfit/tensor"
)

// Fitter jointly optimizes the packed coefficients and the w latent.
type Fitter = fitting.Fitter

// Config enumerates every recognized fitting option.
type Config = fitting.Config

// Weights are the loss term weights.
type Weights = fitting.Weights

// NonFinitePolicy selects what happens when the total loss is NaN or infinite.
type NonFinitePolicy = fitting.NonFinitePolicy

// Non-finite loss policies.
const (
	NonFiniteIgnore = fitting.NonFiniteIgnore
	NonFiniteSkip   = fitting.NonFiniteSkip
	NonFiniteFail   = fitting.NonFiniteFail
)

// Collaborator contracts and data types.
type (
	Collaborators  = fitting.Collaborators
	FaceModel      = fitting.FaceModel
	TextureGAN     = fitting.TextureGAN
	Renderer       = fitting.Renderer
	RecognitionNet = fitting.RecognitionNet
	PerceptualNet  = fitting.PerceptualNet
	Logger         = fitting.Logger
	Coeffs         = fitting.Coeffs
	Geometry       = fitting.Geometry
	Topology       = fitting.Topology
	ViewData       = fitting.ViewData
	Result         = fitting.Result
	Losses         = fitting.Losses
	Problem        = fitting.Problem
)

// Errors.
var (
	ErrInvalidConfig       = fitting.ErrInvalidConfig
	ErrNoViews             = fitting.ErrNoViews
	ErrViewCountMismatch   = fitting.ErrViewCountMismatch
	ErrInvalidSupervision  = fitting.ErrInvalidSupervision
	ErrShapeMismatch       = fitting.ErrShapeMismatch
	ErrMissingCollaborator = fitting.ErrMissingCollaborator
	ErrRecognitionTraining = fitting.ErrRecognitionTraining
	ErrNonFiniteLoss       = fitting.ErrNonFiniteLoss
	ErrFinalized           = fitting.ErrFinalized
	ErrUnknownBlock        = fitting.ErrUnknownBlock
	ErrDone                = fitting.ErrDone
)

// ShapeMismatchError reports a coefficient block of the wrong width.
type ShapeMismatchError = fitting.ShapeMismatchError

// DefaultConfig returns the configuration with every option at its default.
func DefaultConfig() Config {
	return fitting.DefaultConfig()
}

// LoadConfig reads a YAML configuration file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return fitting.LoadConfig(path)
}

// New creates a Fitter. See the package documentation for an example.
func New(cfg Config, c Collaborators, views []ViewData, initCoeffs []*tensor.Tensor, initZ *tensor.Tensor) (*Fitter, error) {
	return fitting.New(cfg, c, views, initCoeffs, initZ)
}

// SaveResult writes a fitting result as a SafeTensors file.
func SaveResult(path string, r *Result, metadata map[string]string) error {
	return fitting.SaveResult(path, r, metadata)
}

// LoadProblem reads per-view supervision and initial coefficients.
func LoadProblem(path string, b tensor.Backend) (*Problem, error) {
	return fitting.LoadProblem(path, b)
}

// SaveProblem writes per-view supervision and initial coefficients.
func SaveProblem(path string, p *Problem) error {
	return fitting.SaveProblem(path, p)
}

// LoadResult reads a result written by SaveResult.
func LoadResult(path string, b tensor.Backend) (*Result, map[string]string, error) {
	return fitting.LoadResult(path, b)
}
