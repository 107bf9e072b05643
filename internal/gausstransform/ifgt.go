package gausstransform

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// maxOrder caps the Taylor truncation order.
const maxOrder = 200

// expansion holds the IFGT state for a one-dimensional problem: sources are
// bucketed into k equal-width clusters of radius rx, and each cluster keeps
// order Taylor coefficients per weight vector.
type expansion struct {
	lo, width float64
	k         int
	rx, ry    float64
	order     int
	coef      []float64 // coef[(c*W+w)*order+a]
	filled    []bool
}

// center returns the centre of cluster c.
func (e *expansion) center(c int) float64 {
	return e.lo + (float64(c)+0.5)*e.width
}

func (e *expansion) cluster(x float64) int {
	if e.width == 0 {
		return 0
	}
	c := int((x - e.lo) / e.width)
	if c >= e.k {
		c = e.k - 1
	}
	return c
}

// truncationOrder returns the smallest p with (2*rx*ry/h^2)^p / p! <= eps,
// which bounds the per-source Taylor remainder.
func truncationOrder(rx, ry, h, eps float64) int {
	ratio := 2 * rx * ry / (h * h)
	term := 1.0
	for p := 1; p < maxOrder; p++ {
		term *= ratio / float64(p)
		if term <= eps {
			return p
		}
	}
	return maxOrder
}

func (p *problem) newExpansion() *expansion {
	lo, hi := floats.Min(p.x), floats.Max(p.x)
	e := &expansion{lo: lo, k: 1}
	if span := hi - lo; span > 0 {
		// Cluster radius of h/2 keeps the expansion order small.
		e.k = int(math.Ceil(span / p.h))
		e.width = span / float64(e.k)
	}
	e.rx = e.width / 2
	e.ry = e.rx + p.cutoff()
	e.order = truncationOrder(e.rx, e.ry, p.h, p.eps)
	e.coef = make([]float64, e.k*p.w*e.order)
	e.filled = make([]bool, e.k)
	return e
}

// ifgt evaluates a one-dimensional transform with
//
//	exp(-(y-x)^2/h^2) = exp(-dy^2) exp(-dx^2) exp(2 dx dy)
//
// where dx = (x-c)/h and dy = (y-c)/h for a cluster centre c, expanding the
// last factor to the truncation order.
func (p *problem) ifgt(out []float64) {
	e := p.newExpansion()

	// 2^a / a!
	scale := make([]float64, e.order)
	scale[0] = 1
	for a := 1; a < e.order; a++ {
		scale[a] = scale[a-1] * 2 / float64(a)
	}

	mono := make([]float64, e.order)
	for i := 0; i < p.n; i++ {
		c := e.cluster(p.x[i])
		e.filled[c] = true
		dx := (p.x[i] - e.center(c)) / p.h
		g := math.Exp(-dx * dx)
		mono[0] = g
		for a := 1; a < e.order; a++ {
			mono[a] = mono[a-1] * dx
		}
		for w := 0; w < p.w; w++ {
			row := e.coef[(c*p.w+w)*e.order : (c*p.w+w+1)*e.order]
			floats.AddScaled(row, p.q[w*p.n+i], mono)
		}
	}
	for c := 0; c < e.k; c++ {
		for w := 0; w < p.w; w++ {
			floats.Mul(e.coef[(c*p.w+w)*e.order:(c*p.w+w+1)*e.order], scale)
		}
	}

	for j := 0; j < p.m; j++ {
		y := p.y[j]
		cLo, cHi := 0, 0
		if e.width > 0 {
			cLo = int(math.Ceil((y-e.ry-e.lo)/e.width - 0.5))
			cHi = int(math.Floor((y+e.ry-e.lo)/e.width - 0.5))
			cLo = max(cLo, 0)
			cHi = min(cHi, e.k-1)
		} else if math.Abs(y-e.lo) > e.ry {
			continue
		}
		for c := cLo; c <= cHi; c++ {
			if !e.filled[c] {
				continue
			}
			dy := (y - e.center(c)) / p.h
			g := math.Exp(-dy * dy)
			for w := 0; w < p.w; w++ {
				row := e.coef[(c*p.w+w)*e.order : (c*p.w+w+1)*e.order]
				// Horner evaluation of sum_a row[a] * dy^a.
				var sum float64
				for a := e.order - 1; a >= 0; a-- {
					sum = sum*dy + row[a]
				}
				out[w*p.m+j] += g * sum
			}
		}
	}
}
