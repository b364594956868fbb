package app

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
)

var axisNames = map[beam.Axis]string{
	beam.EastWest:   "East-West",
	beam.NorthSouth: "North-South",
}

// PlotCuts draws the cuts with their half-power bounds and fitted Gaussians
func PlotCuts(cuts []*CutResult, beamType beam.Type, freq float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s beam at %g MHz", beamType, freq)
	p.X.Label.Text = "Zenith angle (degrees)"
	p.Y.Label.Text = "Response"
	p.Add(plotter.NewGrid())

	for i, cut := range cuts {
		c := plotutil.Color(i)

		resp, err := plotter.NewLine(points(cut.Angles, cut.Response))
		if err != nil {
			return nil, fmt.Errorf("plotting %s cut: %w", cut.Axis, err)
		}
		resp.LineStyle.Color = c
		resp.LineStyle.Width = vg.Points(1)
		p.Add(resp)
		p.Legend.Add(axisNames[cut.Axis], resp)

		for _, a := range []float64{cut.HalfPowerLo, cut.HalfPowerHi} {
			bound, err := plotter.NewLine(plotter.XYs{{X: a, Y: 0}, {X: a, Y: 1}})
			if err != nil {
				return nil, err
			}
			bound.LineStyle.Color = c
			bound.LineStyle.Width = vg.Points(0.5)
			p.Add(bound)
		}

		if cut.Fit == nil {
			continue
		}
		fit := plotter.NewFunction(func(deg float64) float64 {
			return cut.Fit.At(deg * radPerDeg)
		})
		fit.Color = c
		fit.Width = vg.Points(0.8)
		fit.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		fit.Samples = len(cut.Angles)
		p.Add(fit)
		p.Legend.Add(axisNames[cut.Axis]+" gaussian fit", fit)
	}

	p.Legend.Top = true
	return p, nil
}

func points(xs, ys []float64) plotter.XYs {
	xys := make(plotter.XYs, len(xs))
	for i := range xs {
		xys[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return xys
}

func savePlot(p *plot.Plot, path string) error {
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving plot '%s': %w", path, err)
	}
	return nil
}
