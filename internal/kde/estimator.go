package kde

import (
	"fmt"
	"math"

	"github.com/banshee-data/channelkde/internal/gausstransform"
	"gonum.org/v1/gonum/floats"
)

// GaussTransform approximates sum_i q_i * exp(-||y_j - x_i||^2 / h^2) for
// every target to within epsilon times the total weight. Note that h is
// sqrt(2) times the kernel standard deviation.
type GaussTransform interface {
	Compute(d, n, m, w int, sources []float64, h float64, weights []float64, targets []float64, epsilon float64, out []float64) error
}

// Estimator evaluates univariate kernel density estimates.
// The zero value uses EstimateBandwidth and an automatic Gauss transform.
type Estimator struct {
	Selector  BandwidthSelector
	Transform GaussTransform
}

func (e Estimator) bandwidth(n, d int) float64 {
	if e.Selector == nil {
		return EstimateBandwidth(n, d)
	}
	return e.Selector.Bandwidth(n, d)
}

func (e Estimator) transform() GaussTransform {
	if e.Transform == nil {
		return gausstransform.Transform{}
	}
	return e.Transform
}

func checkWeights(xis, weights []float64) {
	if len(xis) != len(weights) {
		panic(fmt.Sprintf("kde: len(xis) = %d != len(weights) = %d", len(xis), len(weights)))
	}
}

// Exact returns, for every target t, sum_i weights[i] * GaussianKernel(t, xis[i], h).
// It costs O(N*M) and serves as the reference for Fast. With no samples every
// target gets zero.
//
// Exact panics if xis and weights differ in length.
func (e Estimator) Exact(xis, weights, targets []float64) []float64 {
	checkWeights(xis, weights)
	h := e.bandwidth(len(xis), 1)

	prob := make([]float64, len(targets))
	for ti, t := range targets {
		var p float64
		for i, xi := range xis {
			p += weights[i] * GaussianKernel(t, xi, h)
		}
		prob[ti] = p
	}
	return prob
}

// Fast returns the same estimate as Exact, computed with the Gauss transform
// to within epsilon times the total weight.
//
// With no samples the transform cannot run, and Fast returns the uniform
// distribution 1/len(targets) instead. That is not an error.
//
// Fast panics if xis and weights differ in length. Transform failures are
// returned.
func (e Estimator) Fast(xis, weights, targets []float64, epsilon float64) ([]float64, error) {
	checkWeights(xis, weights)

	prob := make([]float64, len(targets))
	if len(xis) == 0 {
		if len(targets) > 0 {
			floats.AddConst(1/float64(len(targets)), prob)
		}
		return prob, nil
	}

	// The transform kernel is exp(-r^2/h^2) rather than exp(-r^2/(2 sigma^2)).
	h := math.Sqrt2 * e.bandwidth(len(xis), 1)

	if err := e.transform().Compute(1, len(xis), len(targets), 1, xis, h, weights, targets, epsilon, prob); err != nil {
		return nil, fmt.Errorf("gauss transform over %d samples: %w", len(xis), err)
	}
	return prob, nil
}

// UnivariateKDE runs Exact with the default estimator.
func UnivariateKDE(xis, weights, targets []float64) []float64 {
	return Estimator{}.Exact(xis, weights, targets)
}

// FastUnivariateKDE runs Fast with the default estimator.
func FastUnivariateKDE(xis, weights, targets []float64, epsilon float64) ([]float64, error) {
	return Estimator{}.Fast(xis, weights, targets, epsilon)
}

// Comparison summarises how far Fast strays from Exact on one input.
type Comparison struct {
	MaxAbsDiff float64 `json:"max_abs_diff"`
	// MaxRelDiff is taken over targets whose exact density exceeds Tolerance.
	MaxRelDiff float64 `json:"max_rel_diff"`
	// Tolerance is epsilon times the total absolute weight.
	Tolerance float64 `json:"tolerance"`
	Within    bool    `json:"within"`
}

// Compare evaluates both estimators on the same input. With no samples the
// two differ, since Fast falls back to a uniform distribution.
func (e Estimator) Compare(xis, weights, targets []float64, epsilon float64) (Comparison, error) {
	exact := e.Exact(xis, weights, targets)
	fast, err := e.Fast(xis, weights, targets, epsilon)
	if err != nil {
		return Comparison{}, err
	}

	var c Comparison
	c.Tolerance = epsilon * floats.Norm(weights, 1)
	for i := range exact {
		diff := math.Abs(fast[i] - exact[i])
		c.MaxAbsDiff = math.Max(c.MaxAbsDiff, diff)
		if exact[i] > c.Tolerance {
			c.MaxRelDiff = math.Max(c.MaxRelDiff, diff/exact[i])
		}
	}
	// Truncation and expansion errors each stay within the tolerance.
	c.Within = c.MaxAbsDiff <= 2*c.Tolerance
	return c, nil
}
