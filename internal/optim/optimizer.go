// Package optim implements the optimizers that drive fitting.
//
// Parameters are described by a table of Groups. A group addresses a flat
// element range of a leaf tensor and carries its own base learning rate, so
// several logical blocks packed into one tensor can be updated with
// different rates while the tensor stays the single owner of the data.
package optim

import (
	"fmt"

	"github.com/born-ml/mvfit/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all groups.
	//
	// Takes a gradient map from autodiff.Backward and updates parameters in
	// place. Groups whose tensor has no gradient are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ApplyRamp sets every group's learning rate to base * ramp.
	ApplyRamp(ramp float64)

	// GetLR returns the current learning rate of group i.
	GetLR(i int) float64
}

// Group is one row of an optimizer's parameter table.
type Group struct {
	Name   string            // Logical block name, e.g. "exp.0"
	Param  *tensor.RawTensor // Leaf tensor owning the data
	Offset int               // First element of the block inside Param
	Length int               // Number of elements in the block
	BaseLR float64           // Learning rate before scheduling
}

// validateGroups checks that every group addresses a valid range and that
// groups sharing a tensor do not overlap.
func validateGroups(groups []Group) error {
	type span struct {
		name       string
		start, end int
	}
	seen := make(map[*tensor.RawTensor][]span)

	for _, g := range groups {
		if g.Param == nil {
			return fmt.Errorf("group %q: nil parameter", g.Name)
		}
		if g.Length <= 0 || g.Offset < 0 || g.Offset+g.Length > g.Param.NumElements() {
			return fmt.Errorf("group %q: range [%d, %d) out of bounds for %d elements",
				g.Name, g.Offset, g.Offset+g.Length, g.Param.NumElements())
		}
		if g.BaseLR < 0 {
			return fmt.Errorf("group %q: negative learning rate %g", g.Name, g.BaseLR)
		}
		for _, s := range seen[g.Param] {
			if g.Offset < s.end && s.start < g.Offset+g.Length {
				return fmt.Errorf("group %q overlaps group %q", g.Name, s.name)
			}
		}
		seen[g.Param] = append(seen[g.Param], span{g.Name, g.Offset, g.Offset + g.Length})
	}
	return nil
}
