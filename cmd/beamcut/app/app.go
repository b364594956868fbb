package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
)

const (
	radPerDeg = math.Pi / 180
	hzPerMHz  = 1e6

	// fwhmPerWidth converts a Gaussian width to its full width at half maximum
	fwhmPerWidth = 2.3548200450309493
)

// CutResult is the response of a beam along one axis through zenith
type CutResult struct {
	Axis        beam.Axis
	Angles      []float64 // Zenith angles in degrees, positive towards east or north
	Response    []float64
	HalfPowerLo float64 // degrees
	HalfPowerHi float64 // degrees
	Fit         *beam.GaussianFit
}

// HalfPowerWidth returns the width of the main lobe at half power in degrees
func (r *CutResult) HalfPowerWidth() float64 {
	return r.HalfPowerHi - r.HalfPowerLo
}

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	model, err := beam.New(config.Beam, []float64{config.Frequency})
	if err != nil {
		return fmt.Errorf("creating beam model: %w", err)
	}

	logger.Info("beam model",
		slog.String("type", config.Beam.Type.String()),
		slog.String("frequency", humanize.SIWithDigits(config.Frequency*hzPerMHz, 2, "Hz")),
		slog.Float64("wavelength", beam.DefaultConstants().Wavelength(config.Frequency)),
		slog.Int("points", config.Points),
	)

	angles := floats.Span(make([]float64, config.Points), -config.Span, config.Span)

	var cuts []*CutResult
	for _, axis := range []beam.Axis{beam.EastWest, beam.NorthSouth} {
		if err = ctx.Err(); err != nil {
			return err
		}

		cut, err := analyzeCut(model, axis, angles)
		if err != nil {
			return fmt.Errorf("%s cut: %w", axis, err)
		}
		if !config.NoFit {
			fit, err := fitMainLobe(cut)
			if err != nil {
				logger.Warn("failed to fit main lobe", slog.String("axis", axis.String()), slog.Any("error", err))
			} else {
				cut.Fit = &fit
			}
		}

		logCut(logger, cut)
		cuts = append(cuts, cut)
	}

	p, err := PlotCuts(cuts, config.Beam.Type, config.Frequency)
	if err != nil {
		return err
	}
	if err = savePlot(p, config.Output); err != nil {
		return err
	}

	logger.Info("saved plot", slog.String("destination", config.Output))
	return nil
}

// analyzeCut evaluates the model along the axis and finds the half-power
// bounds of the cut
func analyzeCut(m beam.Model, axis beam.Axis, angles []float64) (*CutResult, error) {
	rad := floats.ScaleTo(make([]float64, len(angles)), radPerDeg, angles)

	resp, err := beam.Cut(m, axis, rad)
	if err != nil {
		return nil, err
	}
	row := mat.Row(nil, 0, resp)

	lo, hi, err := beam.HalfPowerBounds(angles, row)
	if err != nil {
		return nil, err
	}

	return &CutResult{
		Axis:        axis,
		Angles:      angles,
		Response:    row,
		HalfPowerLo: lo,
		HalfPowerHi: hi,
	}, nil
}

// fitMainLobe fits a zenith centered Gaussian to the samples within the
// half-power bounds. The width is in radians.
func fitMainLobe(cut *CutResult) (beam.GaussianFit, error) {
	var xs, ys []float64
	for i, a := range cut.Angles {
		if a < cut.HalfPowerLo || a > cut.HalfPowerHi {
			continue
		}
		xs = append(xs, a*radPerDeg)
		ys = append(ys, cut.Response[i])
	}

	guess := cut.HalfPowerWidth() * radPerDeg / fwhmPerWidth
	return beam.FitGaussianWidth(xs, ys, guess)
}

func logCut(logger *slog.Logger, cut *CutResult) {
	attrs := []any{
		slog.String("axis", cut.Axis.String()),
		slog.String("halfPowerLo", formatDegrees(cut.HalfPowerLo)),
		slog.String("halfPowerHi", formatDegrees(cut.HalfPowerHi)),
		slog.String("halfPowerWidth", formatDegrees(cut.HalfPowerWidth())),
	}
	if cut.Fit != nil {
		attrs = append(attrs, slog.Group("fit",
			slog.Float64("amplitude", cut.Fit.Amplitude),
			slog.String("width", formatDegrees(cut.Fit.Width/radPerDeg)),
			slog.String("fwhm", formatDegrees(cut.Fit.FWHM()/radPerDeg)),
		))
	}
	logger.Info("beam cut", attrs...)
}

func formatDegrees(deg float64) string {
	return humanize.FtoaWithDigits(deg, 3) + "°"
}
