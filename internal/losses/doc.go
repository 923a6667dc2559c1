// Package losses implements the loss terms used to fit a face model to
// photographs.
//
// Every function takes tensors bound to the caller's backend and returns a
// 0-D tensor, so on an autodiff backend the result can be backpropagated.
// Masks and supervision are treated as constants.
package losses
