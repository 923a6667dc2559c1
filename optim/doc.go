// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the Adam optimizer over parameter groups and the
// cosine learning-rate rampdown used by fitting.
//
// # Parameter Groups
//
// A Group addresses a flat element range of a leaf tensor and carries its
// own base learning rate, so several blocks packed into one tensor can be
// optimized with different rates:
//
//	groups := []optim.Group{
//	    {Name: "a", Param: x.Raw(), Offset: 0, Length: 4, BaseLR: 0.01},
//	    {Name: "b", Param: x.Raw(), Offset: 4, Length: 2, BaseLR: 0.0005},
//	}
//	adam, err := optim.NewAdam(groups, optim.AdamConfig{})
//
// # Training Loop Pattern
//
//	ramp := optim.Rampdown{Length: 0.25}
//	for step := range total {
//	    // 1. Schedule
//	    adam.ApplyRamp(ramp.Factor(step, total))
//
//	    // 2. Forward pass
//	    backend.Tape().StartRecording()
//	    loss := objective(x)
//
//	    // 3. Backward pass
//	    grads := autodiff.Backward(loss, backend)
//	    backend.Tape().StopRecording()
//	    backend.Tape().Clear()
//
//	    // 4. Update parameters
//	    adam.Step(grads)
//	}
package optim
