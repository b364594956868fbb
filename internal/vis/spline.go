package vis

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// MinSplinePoints is the minimum number of knots of a cubic interpolant
const MinSplinePoints = 4

// spline is a not-a-knot cubic spline that extrapolates beyond its knots
// with the cubic of the boundary segment.
type spline struct {
	fit   interp.NotAKnotCubic
	lo    float64
	hi    float64
	left  lagrangeCubic
	right lagrangeCubic
}

// fitSpline fits xs, ys. xs must be strictly increasing.
func fitSpline(xs, ys []float64) (*spline, error) {
	if len(xs) < MinSplinePoints {
		return nil, &InsufficientSamplesError{Have: len(xs), Need: MinSplinePoints}
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d knots, %d values", ErrShapeMismatch, len(xs), len(ys))
	}

	s := &spline{lo: xs[0], hi: xs[len(xs)-1]}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting spline: %w", err)
	}

	s.left = s.segmentCubic(xs[0], xs[1])
	s.right = s.segmentCubic(xs[len(xs)-2], xs[len(xs)-1])
	return s, nil
}

// segmentCubic samples the spline on [a, b) where it is a single cubic
func (s *spline) segmentCubic(a, b float64) lagrangeCubic {
	var c lagrangeCubic
	h := (b - a) / 4
	for k := range c.xs {
		c.xs[k] = a + float64(k)*h
		c.ys[k] = s.fit.Predict(c.xs[k])
	}
	return c
}

func (s *spline) Predict(x float64) float64 {
	switch {
	case x < s.lo:
		return s.left.at(x)
	case x > s.hi:
		return s.right.at(x)
	default:
		return s.fit.Predict(x)
	}
}

// lagrangeCubic is the cubic through four points
type lagrangeCubic struct {
	xs [4]float64
	ys [4]float64
}

func (c lagrangeCubic) at(x float64) float64 {
	var sum float64
	for i := range c.xs {
		term := c.ys[i]
		for j := range c.xs {
			if i != j {
				term *= (x - c.xs[j]) / (c.xs[i] - c.xs[j])
			}
		}
		sum += term
	}
	return sum
}
