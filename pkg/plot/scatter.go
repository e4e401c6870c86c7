// Package plot renders loaded dataset variables as 2-D scatter
// visualizations. Rendering is delegated to gonum/plot.
package plot

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/polarpath/earthdata/pkg/dataset"
)

// Config holds render settings.
type Config struct {
	Title string

	// WidthInches and HeightInches size the canvas. Defaults: 8 x 6.
	WidthInches  float64
	HeightInches float64
}

func (c *Config) applyDefaults() {
	if c.WidthInches <= 0 {
		c.WidthInches = 8
	}
	if c.HeightInches <= 0 {
		c.HeightInches = 6
	}
}

// Scatter builds a scatter plot of yName against xName from one loaded
// group. Pairs with non-finite values are dropped.
func Scatter(g *dataset.Group, xName, yName string, cfg Config) (*plot.Plot, error) {
	cfg.applyDefaults()

	xv, ok := g.Variable(xName)
	if !ok {
		return nil, fmt.Errorf("variable %s not found in group %s", xName, g.Path)
	}
	yv, ok := g.Variable(yName)
	if !ok {
		return nil, fmt.Errorf("variable %s not found in group %s", yName, g.Path)
	}

	xs, err := xv.Float64s()
	if err != nil {
		return nil, err
	}
	ys, err := yv.Float64s()
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("variables %s and %s have different lengths (%d vs %d)",
			xName, yName, len(xs), len(ys))
	}

	xys := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: xs[i], Y: ys[i]})
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	if p.Title.Text == "" {
		p.Title.Text = yName
	}
	p.X.Label.Text = xName
	p.Y.Label.Text = yName

	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("building scatter: %w", err)
	}
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(s)
	p.Add(plotter.NewGrid())

	return p, nil
}

// Render writes the scatter plot as PNG.
func Render(g *dataset.Group, xName, yName string, cfg Config, w io.Writer) error {
	cfg.applyDefaults()

	p, err := Scatter(g, xName, yName, cfg)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(vg.Length(cfg.WidthInches)*vg.Inch, vg.Length(cfg.HeightInches)*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("rendering plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing plot: %w", err)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
