package kde

import "slices"

// Median returns the element at position len(v)/2 once v is ordered, so an
// even-length v yields the upper of its two middle elements rather than
// their mean. v is reordered in place. Median panics on an empty slice.
func Median(v []float64) float64 {
	// TODO: average the two middle elements once consumers of the filtered
	// densities are recalibrated; CenteredMedianFilter already does.
	slices.Sort(v)
	return v[len(v)/2]
}

// MedianFilter replaces v[i] with the Median of v[max(0, i-hwsize) : min(len(v)-1, i+hwsize)].
// The window end is exclusive, so it reaches one element less to the right
// than to the left. Where the window is empty (hwsize 0, or a single
// element) v[i] is kept.
func MedianFilter(v []float64, hwsize int) []float64 {
	vfilt := make([]float64, len(v))
	window := make([]float64, 0, 2*hwsize+1)
	for i := range v {
		wstart := max(0, i-hwsize)
		wend := min(len(v)-1, i+hwsize)
		if wend <= wstart {
			vfilt[i] = v[i]
			continue
		}
		window = append(window[:0], v[wstart:wend]...)
		vfilt[i] = Median(window)
	}
	return vfilt
}

// CenteredMedianFilter is the textbook median filter: the window is
// v[i-hwsize .. i+hwsize] inclusive, clipped at the edges, and even windows
// take the mean of their two middle elements.
func CenteredMedianFilter(v []float64, hwsize int) []float64 {
	vfilt := make([]float64, len(v))
	window := make([]float64, 0, 2*hwsize+1)
	for i := range v {
		wstart := max(0, i-hwsize)
		wend := min(len(v), i+hwsize+1)
		window = append(window[:0], v[wstart:wend]...)
		slices.Sort(window)
		n := len(window)
		if n%2 == 1 {
			vfilt[i] = window[n/2]
		} else {
			vfilt[i] = (window[n/2-1] + window[n/2]) / 2
		}
	}
	return vfilt
}
