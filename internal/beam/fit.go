package beam

import (
	"errors"
	"fmt"
	"math"

	"github.com/maorshutman/lm"
)

const (
	fitIterations   = 1000
	fitObjectiveTol = 1e-16
	minFitPoints    = 3
)

// GaussianFit holds the parameters of A·exp(-(θ/w)²/2) fitted to a beam cut
type GaussianFit struct {
	Amplitude float64
	Width     float64 // radians
}

// At evaluates the fitted Gaussian at angle θ
func (g GaussianFit) At(theta float64) float64 {
	x := theta / g.Width
	return g.Amplitude * math.Exp(-0.5*x*x)
}

// FWHM returns the full width at half maximum in radians
func (g GaussianFit) FWHM() float64 {
	return 2 * math.Sqrt(2*math.Ln2) * g.Width
}

// FitGaussianWidth fits a zenith-centered Gaussian to a beam cut with
// Levenberg-Marquardt, starting from the given width guess in radians.
func FitGaussianWidth(angles, resp []float64, guess float64) (GaussianFit, error) {
	if len(angles) != len(resp) {
		return GaussianFit{}, fmt.Errorf("%w: %d angles, %d responses", ErrShapeMismatch, len(angles), len(resp))
	}
	if len(angles) < minFitPoints {
		return GaussianFit{}, fmt.Errorf("fitting gaussian: need at least %d points, have %d", minFitPoints, len(angles))
	}
	if !(guess > 0) {
		return GaussianFit{}, errors.New("fitting gaussian: width guess must be positive")
	}

	amp := resp[0]
	for _, r := range resp {
		amp = max(amp, r)
	}

	residuals := func(dst, params []float64) {
		g := GaussianFit{Amplitude: params[0], Width: params[1]}
		for i, theta := range angles {
			dst[i] = g.At(theta) - resp[i]
		}
	}

	jacobian := lm.NumJac{Func: residuals}
	problem := lm.LMProblem{
		Dim:        2,
		Size:       len(angles),
		Func:       residuals,
		Jac:        jacobian.Jac,
		InitParams: []float64{amp, guess},
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	result, err := lm.LM(problem, &lm.Settings{Iterations: fitIterations, ObjectiveTol: fitObjectiveTol})
	if err != nil {
		return GaussianFit{}, fmt.Errorf("fitting gaussian: %w", err)
	}

	return GaussianFit{
		Amplitude: result.X[0],
		Width:     math.Abs(result.X[1]),
	}, nil
}
