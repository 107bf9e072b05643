// Package kde estimates one-dimensional densities over channel intensities
// from sampled evidence pixels.
//
// Kernels here are unnormalized: the 1/sqrt(2*pi) factor is omitted, so a
// density sequence does not integrate or sum to one. Downstream classifiers
// are calibrated against this scale.
package kde

import (
	"math"

	"github.com/banshee-data/channelkde/internal/monitoring"
)

// GaussianKernel returns exp(-0.5 * ((t-xi)/h)^2).
func GaussianKernel(t, xi, h float64) float64 {
	x := (t - xi) / h
	return math.Exp(-0.5 * x * x)
}

// GaussianKernelTrace is GaussianKernel with a trace of its intermediate
// values, emitted when monitoring verbose output is on.
func GaussianKernelTrace(t, xi, h float64) float64 {
	x := (t - xi) / h
	monitoring.Tracef("xi : %g, t : %g, h : %g => x = %g => x*x = %g", xi, t, h, x, x*x)
	return math.Exp(-0.5 * x * x)
}
