package report

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelkde/internal/kde"
)

func testSeries() []Series {
	fg := make([]float64, 256)
	bg := make([]float64, 256)
	for i := range fg {
		fg[i] = float64(i) / 255
		bg[i] = 1 - float64(i)/255
	}
	return []Series{
		{Channel: "r", Label: kde.LabelForeground, Density: fg},
		{Channel: "r", Label: kde.LabelBackground, Density: bg},
	}
}

func TestSeriesFromDensities(t *testing.T) {
	ds := []kde.ChannelDensity{
		{Channel: "g", Label: kde.LabelForeground, Density: []float64{1, 2}},
		{Channel: "b", Label: kde.LabelBackground, Density: []float64{3}},
	}
	got := SeriesFromDensities(ds)
	require.Len(t, got, 2)
	assert.Equal(t, "g/foreground", got[0].Name())
	assert.Equal(t, "b/background", got[1].Name())
	assert.Equal(t, []float64{3}, got[1].Density)
	assert.Equal(t, "r", Series{Channel: "r"}.Name())
}

func TestChannelColor(t *testing.T) {
	assert.Equal(t, "#d62728", hexColor(channelColor("r", 0, 3)))
	assert.Equal(t, "#2ca02c", hexColor(channelColor("g", 1, 3)))
	assert.Equal(t, "#1f77b4", hexColor(channelColor("b", 2, 3)))

	// Unknown channels get distinct palette entries.
	a := channelColor("x", 0, 2)
	b := channelColor("y", 1, 2)
	assert.NotEqual(t, a, b)
	assert.Equal(t, uint8(255), a.A)
}

func TestHSLToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, l float64
		want    color.RGBA
	}{
		{"gray", 0, 0, 0.5, color.RGBA{R: 127, G: 127, B: 127}},
		{"red", 0, 1, 0.5, color.RGBA{R: 255}},
		{"green", 1.0 / 3.0, 1, 0.5, color.RGBA{G: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := hslToRGB(tt.h, tt.s, tt.l)
			assert.Equal(t, tt.want, color.RGBA{R: r, G: g, B: b})
		})
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "density.png")
	require.NoError(t, SavePNG(path, "test", testSeries()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height)
}

func TestSavePNGEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, SavePNG(path, "no curves", nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSavePNGBadDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "density.png")
	assert.Error(t, SavePNG(path, "test", testSeries()))
}

func TestNewPlot(t *testing.T) {
	p, err := NewPlot("title", testSeries())
	require.NoError(t, err)
	assert.Equal(t, "title", p.Title.Text)
	assert.Equal(t, "Intensity", p.X.Label.Text)
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	err := RenderHTML(&buf, ChartOptions{Title: "Run abc", Subtitle: "frame.png"}, testSeries())
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.Contains(out, "<html"), "expected an HTML document")
	assert.Contains(t, out, "r/foreground")
	assert.Contains(t, out, "r/background")
	assert.Contains(t, out, "dashed")
	assert.Contains(t, out, "Run abc")
}

func TestRenderHTMLAssetsHost(t *testing.T) {
	var buf bytes.Buffer
	err := RenderHTML(&buf, ChartOptions{Title: "t", AssetsHost: "/static/echarts/"}, testSeries())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "/static/echarts/")
}
