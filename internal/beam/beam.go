package beam

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// SpeedOfLight in m/s
	SpeedOfLight = 2.99792458e8

	// LengthEpsilon scales the along-length factor of a cylinder so it stays
	// numerically equal to 1 for any finite direction.
	LengthEpsilon = 1e-60

	DefaultDiameter = 6.0  // Dish diameter in meters
	DefaultWidth    = 15.0 // Cylinder width in meters
	DefaultLength   = 40.0 // Cylinder length in meters

	// hzPerMHz converts configured frequencies (MHz) to Hz
	hzPerMHz = 1e6
)

// ErrShapeMismatch is returned when directions are not 3-component vectors
var ErrShapeMismatch = errors.New("shape mismatch")

var (
	east  = r3.Vec{X: 1}
	north = r3.Vec{Y: 1}
	up    = r3.Vec{Z: 1}
)

// Model is a single-polarization antenna beam evaluated at the set of
// frequencies it was constructed with.
type Model interface {
	// Frequencies returns the configured frequencies in MHz.
	Frequencies() []float64

	// Response evaluates the beam for every direction. Rows of the result
	// are frequencies, columns are directions.
	Response(dirs []r3.Vec) (*mat.Dense, error)
}

// Constants holds the physical constants a model is evaluated with
type Constants struct {
	SpeedOfLight  float64 // m/s
	LengthEpsilon float64 // along-length factor of a cylinder
}

// DefaultConstants returns SI speed of light and the cylinder length epsilon
func DefaultConstants() Constants {
	return Constants{
		SpeedOfLight:  SpeedOfLight,
		LengthEpsilon: LengthEpsilon,
	}
}

// Wavelength returns the wavelength in meters for a frequency in MHz
func (c Constants) Wavelength(freqMHz float64) float64 {
	return c.SpeedOfLight / (freqMHz * hzPerMHz)
}

type options struct {
	constants Constants
	diameter  float64
	width     float64
	length    float64
}

func defaultOptions() options {
	return options{
		constants: DefaultConstants(),
		diameter:  DefaultDiameter,
		width:     DefaultWidth,
		length:    DefaultLength,
	}
}

// Option configures beam geometry and constants
type Option func(o *options)

// WithConstants overrides the physical constants
func WithConstants(c Constants) Option {
	return func(o *options) {
		o.constants = c
	}
}

// WithDiameter sets the dish diameter in meters
func WithDiameter(d float64) Option {
	return func(o *options) {
		o.diameter = d
	}
}

// WithWidth sets the cylinder width in meters
func WithWidth(w float64) Option {
	return func(o *options) {
		o.width = w
	}
}

// WithLength sets the cylinder length in meters
func WithLength(l float64) Option {
	return func(o *options) {
		o.length = l
	}
}

func validateFrequencies(freqs []float64) error {
	if len(freqs) == 0 {
		return NewConfigError("at least one frequency is required")
	}
	for i, f := range freqs {
		if !(f > 0) || math.IsInf(f, 0) {
			return NewConfigError(fmt.Sprintf("invalid frequency at index %d: %v MHz", i, f))
		}
	}
	return nil
}

func validateConstants(c Constants) error {
	if !(c.SpeedOfLight > 0) {
		return NewConfigError(fmt.Sprintf("invalid speed of light: %v", c.SpeedOfLight))
	}
	if c.LengthEpsilon < 0 {
		return NewConfigError(fmt.Sprintf("invalid length epsilon: %v", c.LengthEpsilon))
	}
	return nil
}

func newResponse(nFreq, nDir int) (*mat.Dense, error) {
	if nDir == 0 {
		return nil, fmt.Errorf("%w: no directions", ErrShapeMismatch)
	}
	return mat.NewDense(nFreq, nDir, nil), nil
}

// sinc is the normalized sinc function, sin(πx)/(πx)
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
