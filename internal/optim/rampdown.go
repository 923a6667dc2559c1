package optim

import "math"

// DefaultRampdownLength is the fraction of the run spent decaying the rate.
const DefaultRampdownLength = 0.25

// Rampdown is a cosine learning-rate rampdown over a fixed-length run.
//
// The factor stays at 1 until the last Length fraction of the run and then
// follows half a cosine period down to 0 at the final step:
//
//	t = step / total
//	lin = min(1, (1 - t) / Length)
//	ramp = 0.5 - 0.5*cos(lin*π)
type Rampdown struct {
	Length float64
}

// Factor returns the ramp for a 0-indexed step of a run of total steps.
func (r Rampdown) Factor(step, total int) float64 {
	length := r.Length
	if length <= 0 {
		length = DefaultRampdownLength
	}
	if total <= 0 {
		return 0
	}
	t := float64(step) / float64(total)
	lin := math.Min(1, (1-t)/length)
	return 0.5 - 0.5*math.Cos(lin*math.Pi)
}
