package regression

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// CostPlot draws cost per epoch as a line with point markers.
func CostPlot(history []EpochResult) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "cost plot")
	}
	pts := make(plotter.XYs, len(history))
	for i, r := range history {
		pts[i].X = float64(r.Epoch)
		pts[i].Y = r.Cost
	}

	p := plot.New()
	p.Title.Text = "Training cost"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "cost (mean squared error)"
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, errors.Wrap(err, "cost plot")
	}
	line.Color = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	points.Radius = vg.Points(2)
	p.Add(line, points)
	p.Legend.Add("cost", line)
	return p, nil
}

// PlotCostHistory saves the cost curve to filename; the format follows the
// extension (png, svg, pdf...).
func PlotCostHistory(history []EpochResult, filename string) error {
	p, err := CostPlot(history)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return errors.Wrapf(err, "save plot %s", filename)
	}
	return nil
}
