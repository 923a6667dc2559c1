// Package synth provides small deterministic stand-ins for the collaborators
// a fitting session drives: a linear face model, an affine texture GAN, a
// splatting renderer and projection-based recognition and perceptual
// networks, plus a Scene generator that renders ground truth supervision
// from known parameters.
//
// Every collaborator builds its outputs from its inputs' backend, so on an
// autodiff backend the whole forward pass is recorded.
package synth
