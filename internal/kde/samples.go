package kde

import (
	"fmt"
	"image"
)

// Labels of a scribble or mask class.
const (
	LabelForeground = "foreground"
	LabelBackground = "background"
)

// LabelName returns the label for the background flag.
func LabelName(background bool) string {
	if background {
		return LabelBackground
	}
	return LabelForeground
}

// SampleSource yields the raw intensities used as evidence for one channel.
type SampleSource interface {
	Samples() ([]float64, error)
}

// Samples is a SampleSource over an already extracted intensity list.
type Samples []float64

// Samples implements SampleSource. The returned slice is a copy.
func (s Samples) Samples() ([]float64, error) {
	return append([]float64(nil), s...), nil
}

// MaskSource selects the pixels of a row-major channel plane whose mask
// byte is non-zero, or zero when Invert is set.
type MaskSource struct {
	Data   []uint8
	Mask   []uint8
	Width  int
	Height int
	Invert bool
}

// Samples implements SampleSource.
func (m MaskSource) Samples() ([]float64, error) {
	if m.Width < 0 || m.Height < 0 {
		return nil, fmt.Errorf("invalid plane size %dx%d", m.Width, m.Height)
	}
	n := m.Width * m.Height
	if len(m.Data) != n {
		return nil, fmt.Errorf("channel has %d pixels, want %d for %dx%d", len(m.Data), n, m.Width, m.Height)
	}
	if len(m.Mask) != n {
		return nil, fmt.Errorf("mask has %d pixels, want %d for %dx%d", len(m.Mask), n, m.Width, m.Height)
	}

	var xis []float64
	for i := 0; i < n; i++ {
		if (m.Mask[i] != 0) != m.Invert {
			xis = append(xis, float64(m.Data[i]))
		}
	}
	return xis, nil
}

// Scribble is a user-drawn region tagged as foreground or background.
type Scribble struct {
	Background bool
	Pixels     []image.Point
}

// ScribbleSource selects the pixels covered by scribbles carrying the
// requested label. Pixel (x, y) is read from Data[Width*y + x].
type ScribbleSource struct {
	Data       []uint8
	Width      int
	Height     int
	Scribbles  []Scribble
	Background bool
}

// Samples implements SampleSource.
func (s ScribbleSource) Samples() ([]float64, error) {
	if s.Width < 0 || s.Height < 0 {
		return nil, fmt.Errorf("invalid plane size %dx%d", s.Width, s.Height)
	}
	if len(s.Data) != s.Width*s.Height {
		return nil, fmt.Errorf("channel has %d pixels, want %d for %dx%d", len(s.Data), s.Width*s.Height, s.Width, s.Height)
	}

	bounds := image.Rect(0, 0, s.Width, s.Height)
	var xis []float64
	for si, sc := range s.Scribbles {
		if sc.Background != s.Background {
			continue
		}
		for _, p := range sc.Pixels {
			if !p.In(bounds) {
				return nil, fmt.Errorf("scribble %d: pixel %v outside %dx%d image", si, p, s.Width, s.Height)
			}
			xis = append(xis, float64(s.Data[s.Width*p.Y+p.X]))
		}
	}
	return xis, nil
}
