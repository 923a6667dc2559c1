// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/mvfit/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Group is one row of an optimizer's parameter table.
type Group = optim.Group

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction over groups.
// Groups sharing a tensor must not overlap.
func NewAdam(groups []Group, config AdamConfig) (*Adam, error) {
	return optim.NewAdam(groups, config)
}

// Rampdown is the cosine learning-rate rampdown schedule.
type Rampdown = optim.Rampdown

// DefaultRampdownLength is the fraction of the run spent ramping down.
const DefaultRampdownLength = optim.DefaultRampdownLength
