// Package gausstransform computes discrete Gauss transforms,
//
//	G_w(y_j) = sum_i q_{w,i} * exp(-||y_j - x_i||^2 / h^2),
//
// for N sources x, M targets y and W weight vectors q, to within an absolute
// error of epsilon * sum_i |q_{w,i}| per target.
//
// Note the kernel form: h here is sqrt(2) times the standard deviation of the
// equivalent normal kernel. Callers working with standard deviations must
// scale before calling.
//
// Arrays are flat and row-major: sources[i*d+k], targets[j*d+k],
// weights[w*N+i] and out[w*M+j].
package gausstransform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNoSources is returned when N is zero. An empty transform has no
	// meaningful scale, so callers must handle that case themselves.
	ErrNoSources = errors.New("gausstransform: no source points")
	// ErrShape is returned when an array length does not match d, N, M or W.
	ErrShape = errors.New("gausstransform: array length does not match dimensions")
	// ErrBadBandwidth is returned for a non-positive or non-finite bandwidth.
	ErrBadBandwidth = errors.New("gausstransform: bandwidth must be positive and finite")
	// ErrBadEpsilon is returned when epsilon is outside (0, 1).
	ErrBadEpsilon = errors.New("gausstransform: epsilon must be in (0, 1)")
	// ErrDimension is returned when the requested method cannot handle d.
	ErrDimension = errors.New("gausstransform: method does not support this dimensionality")
)

// Method selects the evaluation strategy.
type Method int

const (
	// Auto picks a method from the problem size and dimensionality.
	Auto Method = iota
	// Direct evaluates every source/target pair exactly.
	Direct
	// DirectTree evaluates only sources within the truncation radius of each
	// target, found with a k-d tree.
	DirectTree
	// IFGT uses a truncated Taylor expansion about uniform cluster centres.
	// One-dimensional problems only.
	IFGT
)

// directLimit is the largest N*M for which Auto chooses Direct.
const directLimit = 1 << 14

func (m Method) String() string {
	switch m {
	case Auto:
		return "auto"
	case Direct:
		return "direct"
	case DirectTree:
		return "tree"
	case IFGT:
		return "ifgt"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a method name as produced by String back to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "auto":
		return Auto, nil
	case "direct":
		return Direct, nil
	case "tree":
		return DirectTree, nil
	case "ifgt":
		return IFGT, nil
	}
	return Auto, fmt.Errorf("unknown gauss transform method %q", s)
}

// Transform evaluates Gauss transforms with a fixed method.
// The zero value uses Auto.
type Transform struct {
	Method Method
}

// Compute evaluates the transform with automatic method selection.
func Compute(d, n, m, w int, sources []float64, h float64, weights []float64, targets []float64, epsilon float64, out []float64) error {
	return Transform{}.Compute(d, n, m, w, sources, h, weights, targets, epsilon, out)
}

// Compute evaluates the transform into out, which must hold W*M values.
// out is overwritten, not accumulated into.
func (t Transform) Compute(d, n, m, w int, sources []float64, h float64, weights []float64, targets []float64, epsilon float64, out []float64) error {
	if n == 0 {
		return ErrNoSources
	}
	if d < 1 || n < 0 || m < 0 || w < 1 {
		return fmt.Errorf("%w: d=%d N=%d M=%d W=%d", ErrShape, d, n, m, w)
	}
	if len(sources) != d*n {
		return fmt.Errorf("%w: len(sources)=%d, want %d", ErrShape, len(sources), d*n)
	}
	if len(weights) != w*n {
		return fmt.Errorf("%w: len(weights)=%d, want %d", ErrShape, len(weights), w*n)
	}
	if len(targets) != d*m {
		return fmt.Errorf("%w: len(targets)=%d, want %d", ErrShape, len(targets), d*m)
	}
	if len(out) != w*m {
		return fmt.Errorf("%w: len(out)=%d, want %d", ErrShape, len(out), w*m)
	}
	if !(h > 0) || math.IsInf(h, 0) {
		return fmt.Errorf("%w: h=%g", ErrBadBandwidth, h)
	}
	if !(epsilon > 0 && epsilon < 1) {
		return fmt.Errorf("%w: epsilon=%g", ErrBadEpsilon, epsilon)
	}

	p := &problem{d: d, n: n, m: m, w: w, x: sources, h: h, q: weights, y: targets, eps: epsilon}
	for i := range out {
		out[i] = 0
	}
	if m == 0 {
		return nil
	}

	method := t.Method
	if method == Auto {
		method = p.choose()
	}
	switch method {
	case Direct:
		p.direct(out)
	case DirectTree:
		p.tree(out)
	case IFGT:
		if d != 1 {
			return fmt.Errorf("%w: ifgt requires d=1, got d=%d", ErrDimension, d)
		}
		p.ifgt(out)
	default:
		return fmt.Errorf("gausstransform: unknown method %v", method)
	}
	return nil
}

// problem carries one validated transform.
type problem struct {
	d, n, m, w int
	x          []float64
	h          float64
	q          []float64
	y          []float64
	eps        float64
}

func (p *problem) choose() Method {
	switch {
	case p.n*p.m <= directLimit:
		return Direct
	case p.d == 1 && p.span() <= p.h*float64(p.n):
		// More clusters than sources makes the expansion pointless.
		return IFGT
	default:
		return DirectTree
	}
}

// span returns the extent of a one-dimensional source set.
func (p *problem) span() float64 {
	return floats.Max(p.x) - floats.Min(p.x)
}

// cutoff is the distance beyond which a single source contributes at most
// eps times its weight.
func (p *problem) cutoff() float64 {
	return p.h * math.Sqrt(math.Log(1/p.eps))
}

func (p *problem) sqDist(i, j int) float64 {
	var sum float64
	xi := p.x[i*p.d : (i+1)*p.d]
	yj := p.y[j*p.d : (j+1)*p.d]
	for k := range xi {
		dv := yj[k] - xi[k]
		sum += dv * dv
	}
	return sum
}

// accumulate adds the contribution of source i with kernel value g to target j.
func (p *problem) accumulate(out []float64, i, j int, g float64) {
	for w := 0; w < p.w; w++ {
		out[w*p.m+j] += p.q[w*p.n+i] * g
	}
}

func (p *problem) direct(out []float64) {
	h2 := p.h * p.h
	for j := 0; j < p.m; j++ {
		for i := 0; i < p.n; i++ {
			p.accumulate(out, i, j, math.Exp(-p.sqDist(i, j)/h2))
		}
	}
}
