// Package render draws density curves: static PNG charts with gonum/plot and
// an interactive HTML report with go-echarts.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/planbiir/gpxaudit/internal/audit"
	"github.com/planbiir/gpxaudit/internal/density"
	"github.com/planbiir/gpxaudit/internal/errs"
	"github.com/planbiir/gpxaudit/internal/session"
)

const ErrNoData = errs.Error("no positive values to draw")

var (
	curveColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	peakColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Panel is one series in the HTML report.
type Panel struct {
	Title   string
	Unit    string
	Session *session.Session

	// Scales are bandwidth factors relative to Silverman, one curve each.
	Scales []float64
}

// PNG saves the curve of res to path on a logarithmic x axis, marking
// peaks. The image format follows the file extension.
func PNG(path, title, unit string, res density.Result) error {
	if res.Empty() || len(res.Curve) == 0 {
		return errs.Invalid("render.PNG", fmt.Errorf("%s: %w", title, ErrNoData))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = unit + " (log scale)"
	p.Y.Label.Text = "Density"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	pts := make(plotter.XYs, len(res.Curve))
	for i, c := range res.Curve {
		pts[i] = plotter.XY{X: c.XLinear, Y: c.Y}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build curve: %w", err)
	}
	line.Color = curveColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("h=%.3g n=%d", res.Bandwidth, res.N), line)

	if len(res.Peaks) > 0 {
		peaks := make(plotter.XYs, len(res.Peaks))
		for i, pk := range res.Peaks {
			peaks[i] = plotter.XY{X: pk.XLinear, Y: pk.Y}
		}
		scatter, err := plotter.NewScatter(peaks)
		if err != nil {
			return fmt.Errorf("failed to build peaks: %w", err)
		}
		scatter.GlyphStyle.Color = peakColor
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("peaks", scatter)
	}

	// a zero-width log axis cannot be normalized
	xs := make([]float64, len(pts))
	for i, pt := range pts {
		xs[i] = pt.X
	}
	if lo, hi := floats.Min(xs), floats.Max(xs); lo == hi {
		p.X.Min, p.X.Max = lo/2, hi*2
	}
	p.Y.Min = 0

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// HTML writes a single page with one line chart per panel and, when pairs is
// not empty, a scatter of the joint time-distance pairs.
func HTML(w io.Writer, panels []Panel, pairs []audit.TimeDistancePair) error {
	page := components.NewPage()

	for _, panel := range panels {
		chart, err := densityChart(panel)
		if err != nil {
			return err
		}
		page.AddCharts(chart)
	}
	if len(pairs) > 0 {
		page.AddCharts(pairsChart(pairs))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}

func densityChart(panel Panel) (*charts.Line, error) {
	scales := panel.Scales
	if len(scales) == 0 {
		scales = []float64{1}
	}
	results, err := panel.Session.Sweep(scales)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", panel.Title, err)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    panel.Title,
			Subtitle: fmt.Sprintf("n=%d silverman h=%.3g", panel.Session.Result().N, panel.Session.DefaultBandwidth()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "log", Name: panel.Unit, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "density"}),
	)

	for i, res := range results {
		data := make([]opts.LineData, len(res.Curve))
		for j, c := range res.Curve {
			data[j] = opts.LineData{Value: []interface{}{c.XLinear, c.Y}}
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		}
		for _, pk := range res.Peaks {
			seriesOpts = append(seriesOpts, charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
				Name:       "peak",
				Coordinate: []interface{}{pk.XLinear, pk.Y},
				Value:      fmt.Sprintf("%.4g", pk.XLinear),
			}))
		}
		line.AddSeries(fmt.Sprintf("%gx h=%.3g", scales[i], res.Bandwidth), data, seriesOpts...)
	}
	return line, nil
}

func pairsChart(pairs []audit.TimeDistancePair) *charts.Scatter {
	data := make([]opts.ScatterData, len(pairs))
	for i, p := range pairs {
		data[i] = opts.ScatterData{Value: []interface{}{p.DtSec, p.DdMeters}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Time vs distance", Subtitle: fmt.Sprintf("pairs=%d", len(pairs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "log", Name: "dt (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "distance (m)"}),
	)
	scatter.AddSeries("pairs", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}
