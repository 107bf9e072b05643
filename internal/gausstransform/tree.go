package gausstransform

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// source is a k-d tree entry referencing one row of the sources array.
type source struct {
	coords []float64
	index  int
}

// Compare implements the kdtree.Comparable interface.
func (s source) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return s.coords[d] - c.(source).coords[d]
}

// Dims returns the dimensionality of the point.
func (s source) Dims() int { return len(s.coords) }

// Distance returns the squared Euclidean distance, which is also what the
// Gaussian exponent needs.
func (s source) Distance(c kdtree.Comparable) float64 {
	o := c.(source)
	var sum float64
	for k, v := range s.coords {
		dv := v - o.coords[k]
		sum += dv * dv
	}
	return sum
}

// sources satisfies kdtree.Interface.
type sources []source

func (s sources) Index(i int) kdtree.Comparable         { return s[i] }
func (s sources) Len() int                              { return len(s) }
func (s sources) Slice(start, end int) kdtree.Interface { return s[start:end] }

// Pivot implements the kdtree.Interface method.
func (s sources) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(sourcePlane{sources: s, Dim: d}, kdtree.MedianOfRandoms(sourcePlane{sources: s, Dim: d}, 100))
}

// sourcePlane implements sort.Interface and kdtree.SortSlicer along one axis.
type sourcePlane struct {
	sources
	kdtree.Dim
}

func (p sourcePlane) Less(i, j int) bool {
	return p.sources[i].coords[p.Dim] < p.sources[j].coords[p.Dim]
}

func (p sourcePlane) Slice(start, end int) kdtree.SortSlicer {
	return sourcePlane{sources: p.sources[start:end], Dim: p.Dim}
}

func (p sourcePlane) Swap(i, j int) {
	p.sources[i], p.sources[j] = p.sources[j], p.sources[i]
}

// tree sums only the sources within the cutoff radius of each target.
// Each dropped source contributes at most eps times its weight.
func (p *problem) tree(out []float64) {
	pts := make(sources, p.n)
	for i := range pts {
		pts[i] = source{coords: p.x[i*p.d : (i+1)*p.d], index: i}
	}
	t := kdtree.New(pts, false)

	r := p.cutoff()
	r2 := r * r
	h2 := p.h * p.h
	for j := 0; j < p.m; j++ {
		q := source{coords: p.y[j*p.d : (j+1)*p.d], index: -1}
		keeper := kdtree.NewDistKeeper(r2)
		t.NearestSet(keeper, q)
		for _, c := range keeper.Heap {
			// An unfilled keeper holds only its distance sentinel.
			if c.Comparable == nil {
				continue
			}
			s := c.Comparable.(source)
			p.accumulate(out, s.index, j, math.Exp(-c.Dist/h2))
		}
	}
}
