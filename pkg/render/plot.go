package render

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/gridroute/pkg/router"
)

var (
	overflowColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	reroutedColor = color.RGBA{R: 40, G: 90, B: 200, A: 255}
)

// ConvergenceSeries returns the per-iteration total overflow and re-routed
// net counts as plot points.
func ConvergenceSeries(iters []router.IterationStats) (overflow, rerouted plotter.XYs) {
	overflow = make(plotter.XYs, len(iters))
	rerouted = make(plotter.XYs, len(iters))
	for i, it := range iters {
		overflow[i] = plotter.XY{X: float64(it.Iteration), Y: float64(it.TotalOverflow)}
		rerouted[i] = plotter.XY{X: float64(it.Iteration), Y: float64(it.Rerouted)}
	}
	return overflow, rerouted
}

// ConvergencePlot renders overflow and re-routed nets per iteration as PNG.
func ConvergencePlot(title string, iters []router.IterationStats) ([]byte, error) {
	if len(iters) == 0 {
		return nil, fmt.Errorf("convergence plot: no iterations")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "count"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	overflow, rerouted := ConvergenceSeries(iters)
	for _, s := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
	}{
		{"total overflow", overflow, overflowColor},
		{"re-routed nets", rerouted, reroutedColor},
	} {
		line, points, err := plotter.NewLinePoints(s.pts)
		if err != nil {
			return nil, fmt.Errorf("convergence plot: %w", err)
		}
		line.Color = s.color
		line.Width = vg.Points(1.5)
		points.Color = s.color
		p.Add(line, points)
		p.Legend.Add(s.name, line, points)
	}
	p.Legend.Top = true

	w, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("convergence plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("convergence plot: %w", err)
	}
	return buf.Bytes(), nil
}
