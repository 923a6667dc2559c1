package fitting

import (
	"context"
	"fmt"
	"image"

	"github.com/born-ml/mvfit/internal/autodiff"
	"github.com/born-ml/mvfit/internal/optim"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Phase is the lifecycle stage of a Fitter.
type Phase int

// Fitter phases.
const (
	PhaseInitializing Phase = iota
	PhaseStepping
	PhaseFinalizing
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseStepping:
		return "stepping"
	case PhaseFinalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Fitter jointly optimizes the packed coefficients and the w latent against
// every view. A Fitter is not safe for concurrent use.
type Fitter struct {
	cfg      Config
	backend  *autodiff.AutodiffBackend
	logger   Logger
	sup      *Supervision
	state    *ParameterState
	pipeline *Pipeline
	agg      *Aggregator
	opt      *optim.Adam
	ramp     optim.Rampdown

	phase Phase
	step  int
	last  *Losses
}

// New validates the configuration, stacks the view supervision, packs the
// initial coefficients and builds the optimizer.
//
// initCoeffs holds one flat coefficient vector per view, in view order.
// initZ may be nil, in which case the texture GAN draws one.
func New(cfg Config, c Collaborators, views []ViewData, initCoeffs []*tensor.Tensor, initZ *tensor.Tensor) (*Fitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNoViews
	}
	if len(views) != len(initCoeffs) {
		return nil, fmt.Errorf("%w: %d views, %d initial coefficient vectors",
			ErrViewCountMismatch, len(views), len(initCoeffs))
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	b := c.Backend
	b.Tape().StopRecording()
	b.Tape().Clear()

	sup, err := NewSupervision(b, views)
	if err != nil {
		return nil, err
	}
	state, err := NewParameterState(b, c.FaceModel, c.TextureGAN, initCoeffs, initZ)
	if err != nil {
		return nil, err
	}
	agg, err := NewAggregator(cfg, c, sup)
	if err != nil {
		return nil, err
	}
	opt, err := optim.NewAdam(buildGroups(state, cfg), optim.AdamConfig{Betas: cfg.AdamBetas, Eps: cfg.AdamEps})
	if err != nil {
		return nil, fmt.Errorf("failed to build optimizer: %w", err)
	}

	logger := c.Logger
	if logger == nil {
		logger = discardLogger{}
	}

	return &Fitter{
		cfg:      cfg,
		backend:  b,
		logger:   logger,
		sup:      sup,
		state:    state,
		pipeline: NewPipeline(c.FaceModel, c.TextureGAN, c.Renderer),
		agg:      agg,
		opt:      opt,
		ramp:     optim.Rampdown{Length: cfg.LRRampdownLength},
	}, nil
}

func (c Collaborators) validate() error {
	required := []struct {
		name    string
		missing bool
	}{
		{"backend", c.Backend == nil},
		{"face model", c.FaceModel == nil},
		{"texture GAN", c.TextureGAN == nil},
		{"renderer", c.Renderer == nil},
	}
	for _, r := range required {
		if r.missing {
			return fmt.Errorf("%w: %s", ErrMissingCollaborator, r.name)
		}
	}
	return nil
}

// Step runs one optimization iteration: schedule the learning rates,
// evaluate the forward pipeline and the losses, back-propagate and apply
// one Adam update. Progress is logged every PrintFreq steps and snapshots
// every VisualFreq steps, and both on the last step.
func (f *Fitter) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.phase == PhaseFinalizing || f.step >= f.cfg.TotalStep {
		return ErrDone
	}
	f.phase = PhaseStepping

	f.opt.ApplyRamp(f.ramp.Factor(f.step, f.cfg.TotalStep))

	tape := f.backend.Tape()
	tape.Clear()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	pred := f.pipeline.Evaluate(f.state)
	losses, err := f.agg.Compute(pred, f.state)
	if err != nil {
		return fmt.Errorf("step %d: %w", f.step+1, err)
	}

	apply := true
	if !losses.Finite() {
		switch f.cfg.NonFinite {
		case NonFiniteFail:
			return fmt.Errorf("step %d: %w: %s", f.step+1, ErrNonFiniteLoss, losses)
		case NonFiniteSkip:
			apply = false
		}
	}

	if apply {
		grads := autodiff.Backward(losses.Total, f.backend)
		tape.StopRecording()
		f.opt.Step(grads)
	}

	f.step++
	f.last = losses

	if f.step%f.cfg.PrintFreq == 0 || f.step == f.cfg.TotalStep {
		f.logProgress(losses)
	}
	if f.step%f.cfg.VisualFreq == 0 || f.step == f.cfg.TotalStep {
		vis := visualPanel(f.sup, pred, f.agg.Composite(pred))
		f.logger.Images([]string{VisualName}, []image.Image{vis}, f.step)
	}
	return nil
}

func (f *Fitter) logProgress(losses *Losses) {
	lr := f.opt.GetLR(0)
	f.logger.Scalars([]string{"lr"}, []float64{lr}, f.step)

	names, values := losses.Scalars()
	f.logger.Scalars(names, values, f.step)
	f.logger.Text(fmt.Sprintf("[step %d/%d] [lr:%.7f] %s", f.step, f.cfg.TotalStep, lr, losses))
}

// Run iterates until TotalStep steps have completed, then finalizes.
// A cancelled context stops the loop between steps.
func (f *Fitter) Run(ctx context.Context) (*Result, error) {
	for f.step < f.cfg.TotalStep {
		if err := f.Step(ctx); err != nil {
			return nil, err
		}
	}
	return f.Finalize()
}

// Finalize ends the run and returns the detached result. Further calls to
// Step return ErrDone.
func (f *Fitter) Finalize() (*Result, error) {
	f.phase = PhaseFinalizing
	return f.state.Finalize()
}

// Phase returns the current lifecycle phase.
func (f *Fitter) Phase() Phase {
	return f.phase
}

// StepCount returns the number of completed steps.
func (f *Fitter) StepCount() int {
	return f.step
}

// LastLosses returns the losses of the most recent step, or nil.
func (f *Fitter) LastLosses() *Losses {
	return f.last
}

// State returns the parameter state.
func (f *Fitter) State() *ParameterState {
	return f.state
}

// Optimizer returns the Adam optimizer driving the run.
func (f *Fitter) Optimizer() *optim.Adam {
	return f.opt
}

// Config returns the run configuration.
func (f *Fitter) Config() Config {
	return f.cfg
}
