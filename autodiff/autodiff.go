// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation (backpropagation)
// using a gradient tape. It wraps any backend to add autodiff capabilities.
//
// Example:
//
//	import (
//	    "github.com/born-ml/mvfit/autodiff"
//	    "github.com/born-ml/mvfit/backend/cpu"
//	    "github.com/born-ml/mvfit/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    backend.Tape().StartRecording()
//
//	    x := tensor.Ones(tensor.Shape{2, 3}, backend)
//	    y := x.Mul(x).Sum() // Operations recorded on tape
//
//	    grads := autodiff.Backward(y, backend)
//	    _ = grads[x.Raw()] // 2x
//	}
package autodiff

import (
	"github.com/born-ml/mvfit/internal/autodiff"
	"github.com/born-ml/mvfit/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend = autodiff.AutodiffBackend

// New creates a new autodiff backend wrapping the given backend.
func New(backend tensor.Backend) *Backend {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// Backward computes the gradients of t with respect to every recorded input.
func Backward(t *tensor.Tensor, backend *Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
