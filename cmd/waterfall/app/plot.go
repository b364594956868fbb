package app

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
)

var bandpassColor = color.RGBA{R: 200, G: 170, B: 0, A: 255}

// TimeSeries is the mean over frequency of a baseline at every time sample
type TimeSeries struct {
	Baseline timestream.Baseline
	Points   plotter.XYs // X is Unix time in seconds
}

// NewTimeSeries averages the valid samples of every row, rows without any
// valid sample are left out.
func NewTimeSeries(wf *WaterfallData) TimeSeries {
	vals, valid := wf.Values.Mean(vis.AxisFreq).Series(vis.AxisTime, 0, 0)
	return TimeSeries{
		Baseline: wf.Baseline,
		Points:   validPoints(vals, valid, func(i int) float64 { return unixSeconds(wf.Times[i]) }),
	}
}

// Spectrum is the median over time of a baseline and its bandpass estimate
type Spectrum struct {
	Baseline timestream.Baseline
	Points   plotter.XYs // X is frequency in MHz
	Bandpass plotter.XYs
}

// NewSpectrum takes the median of every channel over time and estimates the
// bandpass with a median filter of the given kernel.
func NewSpectrum(wf *WaterfallData, kernel int) (*Spectrum, error) {
	vals, valid := vis.Median(wf.Values, vis.AxisTime).Series(vis.AxisFreq, 0, 0)

	bandpass, err := vis.Bandpass(vals, valid, kernel)
	if err != nil {
		return nil, fmt.Errorf("estimating bandpass: %w", err)
	}

	freq := func(i int) float64 { return wf.Freqs[i] }
	all := make([]bool, len(bandpass))
	for i := range all {
		all[i] = true
	}
	return &Spectrum{
		Baseline: wf.Baseline,
		Points:   validPoints(vals, valid, freq),
		Bandpass: validPoints(bandpass, all, freq),
	}, nil
}

// Plot draws the spectrum and its bandpass
func (s *Spectrum) Plot(part vis.Part) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Baseline %s, median over time", s.Baseline)
	p.X.Label.Text = "Frequency (MHz)"
	p.Y.Label.Text = part.String()
	p.Add(plotter.NewGrid())

	spec, err := plotter.NewLine(s.Points)
	if err != nil {
		return nil, fmt.Errorf("plotting spectrum: %w", err)
	}
	spec.LineStyle.Color = plotutil.Color(0)
	spec.LineStyle.Width = vg.Points(1)

	bp, err := plotter.NewLine(s.Bandpass)
	if err != nil {
		return nil, fmt.Errorf("plotting bandpass: %w", err)
	}
	bp.LineStyle.Color = bandpassColor
	bp.LineStyle.Width = vg.Points(0.8)
	bp.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	p.Add(spec, bp)
	p.Legend.Add(s.Baseline.Pol, spec)
	p.Legend.Add("bandpass", bp)
	p.Legend.Top = true
	return p, nil
}

// PlotTimeSeries draws the time series of several baselines on one plot
func PlotTimeSeries(series []TimeSeries, part vis.Part, loc *time.Location) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Mean over frequency"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = part.String()
	p.X.Tick.Marker = plot.TimeTicks{
		Format: "15:04",
		Time: func(t float64) time.Time {
			return plot.UTCUnixTime(t).In(loc)
		},
	}
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		l, err := plotter.NewLine(s.Points)
		if err != nil {
			return nil, fmt.Errorf("plotting baseline %s: %w", s.Baseline, err)
		}
		l.LineStyle.Color = plotutil.Color(i)
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(s.Baseline.String(), l)
	}
	p.Legend.Top = true
	return p, nil
}

func savePlot(p *plot.Plot, path string) error {
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving plot '%s': %w", path, err)
	}
	return nil
}

// validPoints keeps the finite valid samples
func validPoints(vals []float64, valid []bool, x func(int) float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(vals))
	for i, v := range vals {
		if !valid[i] || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: x(i), Y: v})
	}
	return xys
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
