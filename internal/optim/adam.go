package optim

import (
	"math"

	"github.com/born-ml/mvfit/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer over a
// table of parameter groups.
//
// Update rule, per element of each group:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Each group keeps its own timestep, so a group that received no gradient
// is left untouched, bias correction included.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	groups []Group
	state  []adamState
	beta1  float64
	beta2  float64
	eps    float64
}

type adamState struct {
	lr float64
	t  int
	m  []float32
	v  []float32
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer over groups.
//
// Default hyperparameters:
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(groups []Group, config AdamConfig) (*Adam, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}

	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	state := make([]adamState, len(groups))
	for i, g := range groups {
		state[i] = adamState{
			lr: g.BaseLR,
			m:  make([]float32, g.Length),
			v:  make([]float32, g.Length),
		}
	}

	return &Adam{
		groups: append([]Group(nil), groups...),
		state:  state,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
	}, nil
}

// Step performs a single optimization step using Adam algorithm.
func (a *Adam) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for i, g := range a.groups {
		grad, ok := grads[g.Param]
		if !ok || grad == nil {
			// Parameter didn't participate in forward pass, skip
			continue
		}
		a.updateGroup(g, &a.state[i], grad.Data()[g.Offset:g.Offset+g.Length])
	}
}

// updateGroup performs the Adam update for one group.
func (a *Adam) updateGroup(g Group, s *adamState, grad []float32) {
	s.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(s.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(s.t))

	param := g.Param.Data()[g.Offset : g.Offset+g.Length]
	for i := range param {
		gi := float64(grad[i])

		m := a.beta1*float64(s.m[i]) + (1-a.beta1)*gi
		v := a.beta2*float64(s.v[i]) + (1-a.beta2)*gi*gi
		s.m[i], s.v[i] = float32(m), float32(v)

		mHat := m / biasCorrection1
		vHat := v / biasCorrection2
		param[i] -= float32(s.lr * mHat / (math.Sqrt(vHat) + a.eps))
	}
}

// ApplyRamp sets every group's learning rate to its base rate times ramp.
func (a *Adam) ApplyRamp(ramp float64) {
	for i, g := range a.groups {
		a.state[i].lr = g.BaseLR * ramp
	}
}

// GetLR returns the current learning rate of group i.
func (a *Adam) GetLR(i int) float64 {
	return a.state[i].lr
}

// Groups returns a copy of the parameter table.
func (a *Adam) Groups() []Group {
	return append([]Group(nil), a.groups...)
}

// GetTimestep returns the number of updates applied to group i.
func (a *Adam) GetTimestep(i int) int {
	return a.state[i].t
}
