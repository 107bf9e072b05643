package kde

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplesCopies(t *testing.T) {
	src := Samples{1, 2, 3}
	got, err := src.Samples()
	require.NoError(t, err)
	got[0] = 99
	assert.Equal(t, 1.0, src[0])
}

func TestMaskSource(t *testing.T) {
	src := MaskSource{
		Data:   []uint8{10, 20, 30, 40, 50, 60},
		Mask:   []uint8{0, 1, 0, 255, 0, 1},
		Width:  3,
		Height: 2,
	}
	got, err := src.Samples()
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{20, 40, 60}, got); diff != "" {
		t.Errorf("MaskSource samples mismatch (-want +got):\n%s", diff)
	}

	src.Invert = true
	got, err = src.Samples()
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{10, 30, 50}, got); diff != "" {
		t.Errorf("inverted MaskSource samples mismatch (-want +got):\n%s", diff)
	}
}

func TestMaskSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		src  MaskSource
	}{
		{"short data", MaskSource{Data: []uint8{1}, Mask: []uint8{1, 1}, Width: 2, Height: 1}},
		{"short mask", MaskSource{Data: []uint8{1, 2}, Mask: []uint8{1}, Width: 2, Height: 1}},
		{"negative size", MaskSource{Width: -1, Height: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.src.Samples()
			assert.Error(t, err)
		})
	}
}

func TestScribbleSource(t *testing.T) {
	// 2x2 image, flattened row-major.
	data := []uint8{10, 20, 30, 40}
	scribbles := []Scribble{
		{Background: false, Pixels: []image.Point{{X: 1, Y: 1}}},
	}

	fg, err := ScribbleSource{Data: data, Width: 2, Height: 2, Scribbles: scribbles}.Samples()
	require.NoError(t, err)
	require.Len(t, fg, 1)
	assert.Equal(t, float64(data[2*1+1]), fg[0])

	bg, err := ScribbleSource{Data: data, Width: 2, Height: 2, Scribbles: scribbles, Background: true}.Samples()
	require.NoError(t, err)
	assert.Empty(t, bg)
}

func TestScribbleSourceSelectsLabel(t *testing.T) {
	data := []uint8{
		1, 2, 3,
		4, 5, 6,
	}
	scribbles := []Scribble{
		{Background: true, Pixels: []image.Point{{X: 0, Y: 0}, {X: 2, Y: 1}}},
		{Background: false, Pixels: []image.Point{{X: 1, Y: 0}}},
		{Background: true, Pixels: []image.Point{{X: 1, Y: 1}}},
	}

	got, err := ScribbleSource{Data: data, Width: 3, Height: 2, Scribbles: scribbles, Background: true}.Samples()
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{1, 6, 5}, got); diff != "" {
		t.Errorf("background samples mismatch (-want +got):\n%s", diff)
	}
}

func TestScribbleSourceOutOfBounds(t *testing.T) {
	src := ScribbleSource{
		Data:      []uint8{1, 2, 3, 4},
		Width:     2,
		Height:    2,
		Scribbles: []Scribble{{Pixels: []image.Point{{X: 2, Y: 0}}}},
	}
	_, err := src.Samples()
	assert.ErrorContains(t, err, "outside 2x2")
}

func TestLabelName(t *testing.T) {
	assert.Equal(t, LabelBackground, LabelName(true))
	assert.Equal(t, LabelForeground, LabelName(false))
}
