package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/airwrite/internal/stroke"
)

// PlotPNG writes a PNG of the stroke in screen coordinates: one polyline per
// pen-down run, y axis pointing down like the display. Single-point runs are
// drawn as dots so a tap is still visible.
func PlotPNG(w io.Writer, segments []stroke.Segment, screenWidth, screenHeight float64) error {
	p := plot.New()
	p.Title.Text = "airwrite stroke"
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = 0, screenWidth
	p.Y.Min, p.Y.Max = 0, screenHeight
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}

	ink := color.RGBA{R: 20, G: 20, B: 160, A: 255}
	for i, run := range Runs(segments) {
		xys := make(plotter.XYs, len(run))
		for j, pt := range run {
			xys[j] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		if len(run) == 1 {
			s, err := plotter.NewScatter(xys)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			s.GlyphStyle.Color = ink
			p.Add(s)
			continue
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		l.LineStyle.Width = vg.Points(2)
		l.LineStyle.Color = ink
		p.Add(l)
	}

	// Keep the screen aspect ratio with a 6 inch long edge.
	width, height := 6*vg.Inch, 6*vg.Inch
	if screenWidth > 0 && screenHeight > 0 {
		if screenWidth > screenHeight {
			height = vg.Length(float64(width) * screenHeight / screenWidth)
		} else {
			width = vg.Length(float64(height) * screenWidth / screenHeight)
		}
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
