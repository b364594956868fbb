package beam

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cylinder is the 'x' polarization beam of a cylinder reflector whose axis
// points north. Directivity along the cylinder length is negligible, the
// response is a sinc across the width times the projection on zenith.
type Cylinder struct {
	freqs     []float64
	width     float64
	length    float64
	constants Constants
}

// NewCylinder creates a cylinder beam for the given frequencies in MHz.
// Width and length default to DefaultWidth and DefaultLength.
func NewCylinder(freqs []float64, opts ...Option) (*Cylinder, error) {
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
	if !(o.width > 0) {
		return nil, NewConfigError(fmt.Sprintf("invalid cylinder width: %v", o.width))
	}
	if !(o.length > 0) {
		return nil, NewConfigError(fmt.Sprintf("invalid cylinder length: %v", o.length))
	}

	return &Cylinder{
		freqs:     slices.Clone(freqs),
		width:     o.width,
		length:    o.length,
		constants: o.constants,
	}, nil
}

func (c *Cylinder) Frequencies() []float64 {
	return slices.Clone(c.freqs)
}

// Width returns the cylinder width in meters
func (c *Cylinder) Width() float64 {
	return c.width
}

// Length returns the cylinder length in meters
func (c *Cylinder) Length() float64 {
	return c.length
}

// Response returns sinc(W·nu/λ)·sinc(ε·nv/λ)·nz. Directions at or below the
// horizon have nz forced to zero, so their response is exactly zero.
func (c *Cylinder) Response(dirs []r3.Vec) (*mat.Dense, error) {
	resp, err := newResponse(len(c.freqs), len(dirs))
	if err != nil {
		return nil, err
	}

	for i, f := range c.freqs {
		lambda := c.constants.Wavelength(f)
		for j, n := range dirs {
			nz := r3.Dot(n, up)
			if nz <= 0 {
				nz = 0
			}
			nu := r3.Dot(n, east)
			nv := r3.Dot(n, north)

			resp.Set(i, j, sinc(c.width*nu/lambda)*sinc(c.constants.LengthEpsilon*nv/lambda)*nz)
		}
	}
	return resp, nil
}
