// Package report draws channel density curves as PNG plots and HTML
// charts.
package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/channelkde/internal/kde"
)

// Series is one density curve, indexed by grid position.
type Series struct {
	Channel string
	Label   string
	Density []float64
}

// Name is the legend entry for s.
func (s Series) Name() string {
	if s.Label == "" {
		return s.Channel
	}
	return s.Channel + "/" + s.Label
}

// SeriesFromDensities converts estimator results into plot series.
func SeriesFromDensities(ds []kde.ChannelDensity) []Series {
	out := make([]Series, len(ds))
	for i, d := range ds {
		out[i] = Series{Channel: d.Channel, Label: d.Label, Density: d.Density}
	}
	return out
}

// channelColor maps the conventional channel names to their own hue and
// everything else to a palette entry.
func channelColor(channel string, i, n int) color.RGBA {
	switch channel {
	case "r":
		return color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}
	case "g":
		return color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255}
	case "b":
		return color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	}
	return paletteColor(i, n)
}

func paletteColor(i, n int) color.RGBA {
	if n <= 0 {
		n = 1
	}
	r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NewPlot builds a line plot with one curve per series. Background curves
// are dashed.
func NewPlot(title string, series []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Intensity"
	p.Y.Label.Text = "Density"
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	for i, s := range series {
		pts := make(plotter.XYs, len(s.Density))
		for j, v := range s.Density {
			pts[j] = plotter.XY{X: float64(j), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for %s: %w", s.Name(), err)
		}
		line.Width = vg.Points(1)
		line.Color = channelColor(s.Channel, i, len(series))
		if s.Label == kde.LabelBackground {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		p.Legend.Add(s.Name(), line)
	}
	return p, nil
}

// SavePNG writes the density plot to path. The format follows the file
// extension (.png, .svg, .pdf, ...).
func SavePNG(path, title string, series []Series) error {
	p, err := NewPlot(title, series)
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// ChartOptions controls the HTML rendering.
type ChartOptions struct {
	Title    string
	Subtitle string
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

// NewLineChart builds an echarts line chart of the series.
func NewLineChart(o ChartOptions, series []Series) *charts.Line {
	n := 0
	for _, s := range series {
		n = max(n, len(s.Density))
	}
	x := make([]int, n)
	for i := range x {
		x[i] = i
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "600px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Intensity", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Density"}),
	)
	line.SetXAxis(x)

	for i, s := range series {
		data := make([]opts.LineData, len(s.Density))
		for j, v := range s.Density {
			data[j] = opts.LineData{Value: v}
		}
		style := opts.LineStyle{Color: hexColor(channelColor(s.Channel, i, len(series)))}
		if s.Label == kde.LabelBackground {
			style.Type = "dashed"
		}
		line.AddSeries(s.Name(), data, charts.WithLineStyleOpts(style))
	}
	return line
}

// RenderHTML writes a standalone HTML page with the density chart to w.
func RenderHTML(w io.Writer, o ChartOptions, series []Series) error {
	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.PageTitle = o.Title
	page.AddCharts(NewLineChart(o, series))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
