package gausstransform

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomProblem(seed uint64, d, n, m, w int) (x, q, y []float64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	x = make([]float64, d*n)
	for i := range x {
		x[i] = rng.Float64()*2 - 1
	}
	q = make([]float64, w*n)
	for i := range q {
		q[i] = rng.Float64() / float64(n)
	}
	y = make([]float64, d*m)
	for i := range y {
		y[i] = rng.Float64()*2.4 - 1.2
	}
	return x, q, y
}

// totalWeight returns sum |q| for weight vector k.
func totalWeight(q []float64, n, k int) float64 {
	var sum float64
	for _, v := range q[k*n : (k+1)*n] {
		sum += math.Abs(v)
	}
	return sum
}

func TestComputeValidation(t *testing.T) {
	t.Parallel()

	x := []float64{0, 0.5}
	q := []float64{0.5, 0.5}
	y := []float64{0, 1, 2}
	out := make([]float64, 3)

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"no sources", func() error { return Compute(1, 0, 3, 1, nil, 1, nil, y, 1e-3, out) }, ErrNoSources},
		{"short sources", func() error { return Compute(1, 2, 3, 1, x[:1], 1, q, y, 1e-3, out) }, ErrShape},
		{"short weights", func() error { return Compute(1, 2, 3, 1, x, 1, q[:1], y, 1e-3, out) }, ErrShape},
		{"short targets", func() error { return Compute(1, 2, 3, 1, x, 1, q, y[:2], 1e-3, out) }, ErrShape},
		{"short output", func() error { return Compute(1, 2, 3, 1, x, 1, q, y, 1e-3, out[:2]) }, ErrShape},
		{"zero weight vectors", func() error { return Compute(1, 2, 3, 0, x, 1, q, y, 1e-3, out) }, ErrShape},
		{"zero dimensions", func() error { return Compute(0, 2, 3, 1, x, 1, q, y, 1e-3, out) }, ErrShape},
		{"zero bandwidth", func() error { return Compute(1, 2, 3, 1, x, 0, q, y, 1e-3, out) }, ErrBadBandwidth},
		{"nan bandwidth", func() error { return Compute(1, 2, 3, 1, x, math.NaN(), q, y, 1e-3, out) }, ErrBadBandwidth},
		{"inf bandwidth", func() error { return Compute(1, 2, 3, 1, x, math.Inf(1), q, y, 1e-3, out) }, ErrBadBandwidth},
		{"zero epsilon", func() error { return Compute(1, 2, 3, 1, x, 1, q, y, 0, out) }, ErrBadEpsilon},
		{"epsilon one", func() error { return Compute(1, 2, 3, 1, x, 1, q, y, 1, out) }, ErrBadEpsilon},
		{"ifgt in 2d", func() error {
			return Transform{Method: IFGT}.Compute(2, 1, 1, 1, []float64{0, 0}, 1, []float64{1}, []float64{0, 0}, 1e-3, make([]float64, 1))
		}, ErrDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDirectMatchesClosedForm(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1}
	q := []float64{0.25, 0.75}
	y := []float64{0, 0.5}
	h := 2.0
	out := make([]float64, 2)
	require.NoError(t, Transform{Method: Direct}.Compute(1, 2, 2, 1, x, h, q, y, 1e-6, out))

	want0 := 0.25 + 0.75*math.Exp(-1.0/4)
	want1 := 0.25*math.Exp(-0.25/4) + 0.75*math.Exp(-0.25/4)
	assert.InDelta(t, want0, out[0], 1e-15)
	assert.InDelta(t, want1, out[1], 1e-15)
}

func TestMethodsAgreeWithDirect(t *testing.T) {
	t.Parallel()

	for _, eps := range []float64{1e-2, 1e-4, 1e-8} {
		for _, method := range []Method{DirectTree, IFGT, Auto} {
			x, q, y := randomProblem(42, 1, 500, 256, 1)
			h := math.Sqrt2 * 0.1

			want := make([]float64, 256)
			require.NoError(t, Transform{Method: Direct}.Compute(1, 500, 256, 1, x, h, q, y, eps, want))

			got := make([]float64, 256)
			require.NoError(t, Transform{Method: method}.Compute(1, 500, 256, 1, x, h, q, y, eps, got))

			tol := 2 * eps * totalWeight(q, 500, 0)
			for j := range want {
				if math.Abs(got[j]-want[j]) > tol {
					t.Fatalf("method=%v eps=%g target %d: got %g, want %g (tol %g)", method, eps, j, got[j], want[j], tol)
				}
			}
		}
	}
}

func TestTreeMultiDimensional(t *testing.T) {
	t.Parallel()

	const d, n, m = 3, 300, 64
	x, q, y := randomProblem(7, d, n, m, 1)
	h := 0.3
	eps := 1e-6

	want := make([]float64, m)
	require.NoError(t, Transform{Method: Direct}.Compute(d, n, m, 1, x, h, q, y, eps, want))
	got := make([]float64, m)
	require.NoError(t, Transform{Method: DirectTree}.Compute(d, n, m, 1, x, h, q, y, eps, got))

	tol := eps * totalWeight(q, n, 0)
	for j := range want {
		assert.InDelta(t, want[j], got[j], tol, "target %d", j)
	}
}

func TestMultipleWeightVectors(t *testing.T) {
	t.Parallel()

	const n, m, w = 200, 50, 3
	x, q, y := randomProblem(11, 1, n, m, w)
	h := 0.2
	eps := 1e-6

	for _, method := range []Method{Direct, DirectTree, IFGT} {
		all := make([]float64, w*m)
		require.NoError(t, Transform{Method: method}.Compute(1, n, m, w, x, h, q, y, eps, all))

		// Each weight vector on its own must give the same slice of output.
		for k := 0; k < w; k++ {
			single := make([]float64, m)
			require.NoError(t, Transform{Method: Direct}.Compute(1, n, m, 1, x, h, q[k*n:(k+1)*n], y, eps, single))
			tol := 2 * eps * totalWeight(q, n, k)
			for j := 0; j < m; j++ {
				assert.InDelta(t, single[j], all[k*m+j], tol, "method=%v w=%d target %d", method, k, j)
			}
		}
	}
}

func TestIFGTCoincidentSources(t *testing.T) {
	t.Parallel()

	x := []float64{0.25, 0.25, 0.25, 0.25}
	q := []float64{0.25, 0.25, 0.25, 0.25}
	y := []float64{0.25, 0.3, 1.0}
	h := 0.1
	out := make([]float64, 3)
	require.NoError(t, Transform{Method: IFGT}.Compute(1, 4, 3, 1, x, h, q, y, 1e-4, out))

	assert.InDelta(t, 1.0, out[0], 1e-12)
	assert.InDelta(t, math.Exp(-0.25), out[1], 1e-12)
	// Far outside the cutoff radius.
	assert.InDelta(t, 0.0, out[2], 1e-4)
}

func TestComputeOverwritesOutput(t *testing.T) {
	t.Parallel()

	out := []float64{99, 99}
	require.NoError(t, Compute(1, 1, 2, 1, []float64{0}, 1, []float64{1}, []float64{0, 100}, 1e-3, out))
	assert.InDelta(t, 1.0, out[0], 1e-12)
	assert.InDelta(t, 0.0, out[1], 1e-12)
}

func TestComputeNoTargets(t *testing.T) {
	t.Parallel()

	err := Compute(1, 1, 0, 1, []float64{0}, 1, []float64{1}, nil, 1e-3, nil)
	assert.NoError(t, err)
}

func TestAutoSelection(t *testing.T) {
	t.Parallel()

	small := &problem{d: 1, n: 10, m: 256, h: 0.1, x: make([]float64, 10)}
	assert.Equal(t, Direct, small.choose())

	x, _, _ := randomProblem(3, 1, 5000, 0, 1)
	large := &problem{d: 1, n: 5000, m: 256, h: 0.1, x: x}
	assert.Equal(t, IFGT, large.choose())

	// A bandwidth this small would need more clusters than sources.
	narrow := &problem{d: 1, n: 5000, m: 256, h: 1e-6, x: x}
	assert.Equal(t, DirectTree, narrow.choose())

	x2, _, _ := randomProblem(3, 2, 5000, 0, 1)
	multi := &problem{d: 2, n: 5000, m: 256, h: 0.1, x: x2}
	assert.Equal(t, DirectTree, multi.choose())
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	for _, m := range []Method{Auto, Direct, DirectTree, IFGT} {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMethod("fft")
	assert.Error(t, err)
	assert.Equal(t, "Method(9)", Method(9).String())
}

func TestTruncationOrder(t *testing.T) {
	t.Parallel()

	// Zero cluster radius needs a single term.
	assert.Equal(t, 1, truncationOrder(0, 1, 1, 1e-4))

	// Tighter tolerance never needs fewer terms.
	loose := truncationOrder(0.05, 0.4, 0.14, 1e-2)
	tight := truncationOrder(0.05, 0.4, 0.14, 1e-8)
	assert.LessOrEqual(t, loose, tight)
	assert.LessOrEqual(t, tight, maxOrder)
}
