package engine

import "time"

// Cycle is the fixed auto-mode phase order. AutoStep indexes into it.
var Cycle = [...]Color{
	ColorRed,
	ColorGreen,
	ColorYellow,
}

func NextStep(step int) int {
	return (step + 1) % len(Cycle)
}

// DurationFor returns how long the phase at step is held.
func (s Settings) DurationFor(step int) time.Duration {
	switch Cycle[step%len(Cycle)] {
	case ColorGreen:
		return s.Green
	case ColorYellow:
		return s.Yellow
	default:
		return s.Red
	}
}
