package beam

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Dish is a circular dish with a circularly symmetric Gaussian beam centered
// on zenith. The Gaussian is only meaningful near boresight, the back
// hemisphere is not masked.
type Dish struct {
	freqs    []float64
	diameter float64

	xwidth []float64 // Gaussian width per frequency in radians
	ywidth []float64
}

// NewDish creates a dish beam for the given frequencies in MHz.
// The diameter defaults to DefaultDiameter.
func NewDish(freqs []float64, opts ...Option) (*Dish, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateFrequencies(freqs); err != nil {
		return nil, err
	}
	if err := validateConstants(o.constants); err != nil {
		return nil, err
	}
	if !(o.diameter > 0) {
		return nil, NewConfigError(fmt.Sprintf("invalid dish diameter: %v", o.diameter))
	}

	d := &Dish{
		freqs:    slices.Clone(freqs),
		diameter: o.diameter,
		xwidth:   make([]float64, len(freqs)),
		ywidth:   make([]float64, len(freqs)),
	}
	for i, f := range freqs {
		d.xwidth[i] = 1.22 * o.constants.Wavelength(f) / o.diameter
		d.ywidth[i] = d.xwidth[i]
	}
	return d, nil
}

func (d *Dish) Frequencies() []float64 {
	return slices.Clone(d.freqs)
}

// Diameter returns the dish diameter in meters
func (d *Dish) Diameter() float64 {
	return d.diameter
}

// HalfWidth returns the Gaussian width, in radians, at the i-th frequency
func (d *Dish) HalfWidth(i int) float64 {
	return d.xwidth[i]
}

// Response returns exp(-(θx²+θy²)/2) with θ = asin(component)/width per axis
func (d *Dish) Response(dirs []r3.Vec) (*mat.Dense, error) {
	resp, err := newResponse(len(d.freqs), len(dirs))
	if err != nil {
		return nil, err
	}

	for j, n := range dirs {
		ax, ay := math.Asin(n.X), math.Asin(n.Y)
		for i := range d.freqs {
			x := ax / d.xwidth[i]
			y := ay / d.ywidth[i]
			resp.Set(i, j, math.Exp(-0.5*(x*x+y*y)))
		}
	}
	return resp, nil
}
