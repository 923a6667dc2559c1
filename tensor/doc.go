// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides float32 tensors that record their operations on
// the backend they were created with.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/mvfit/backend/cpu"
//	    "github.com/born-ml/mvfit/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros(tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones(tensor.Shape{2, 3}, backend)
//
//	    z := x.Add(y)
//	    result := x.MatMul(y.Transpose())
//	}
//
// # Broadcasting
//
// Element-wise operations follow NumPy broadcasting rules:
//
//	a := tensor.Zeros(tensor.Shape{3, 1}, backend) // (3, 1)
//	b := tensor.Ones(tensor.Shape{3, 4}, backend)  // (3, 4)
//	c := a.Add(b)                                  // (3, 4)
//
// # Views
//
// Reshape, and Narrow over a contiguous region, return views that share
// storage with their source. Writes through a view are visible in the
// source. Clone makes an independent copy.
package tensor
