package beam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	PolarizationX Polarization = "x"
	PolarizationY Polarization = "y"
)

// Polarization of a linear feed
type Polarization string

// ParseDirections converts raw (East, North, Up) triplets into vectors.
// Vectors are taken as given, no normalization is applied.
func ParseDirections(raw [][]float64) ([]r3.Vec, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no directions", ErrShapeMismatch)
	}

	dirs := make([]r3.Vec, len(raw))
	for i, d := range raw {
		if len(d) != 3 {
			return nil, fmt.Errorf("%w: direction %d has %d components, want 3", ErrShapeMismatch, i, len(d))
		}
		dirs[i] = r3.Vec{X: d[0], Y: d[1], Z: d[2]}
	}
	return dirs, nil
}

// DirectionsFromMatrix reads one direction per row of m
func DirectionsFromMatrix(m mat.Matrix) ([]r3.Vec, error) {
	r, c := m.Dims()
	if c != 3 {
		return nil, fmt.Errorf("%w: directions have %d columns, want 3", ErrShapeMismatch, c)
	}

	dirs := make([]r3.Vec, r)
	for i := range dirs {
		dirs[i] = r3.Vec{X: m.At(i, 0), Y: m.At(i, 1), Z: m.At(i, 2)}
	}
	return dirs, nil
}

// Evaluate parses raw directions and evaluates the model on them
func Evaluate(m Model, raw [][]float64) (*mat.Dense, error) {
	dirs, err := ParseDirections(raw)
	if err != nil {
		return nil, err
	}
	return m.Response(dirs)
}

// RotateFeed rotates directions by 90° about the vertical axis,
// (x, y, z) -> (y, -x, z). Evaluating an 'x' model on rotated directions
// gives the response of the orthogonal 'y' feed.
func RotateFeed(dirs []r3.Vec) []r3.Vec {
	rotated := make([]r3.Vec, len(dirs))
	for i, d := range dirs {
		rotated[i] = r3.Vec{X: d.Y, Y: -d.X, Z: d.Z}
	}
	return rotated
}

// ResponseFor evaluates m for the given feed polarization
func ResponseFor(m Model, pol Polarization, dirs []r3.Vec) (*mat.Dense, error) {
	switch pol {
	case PolarizationX:
		return m.Response(dirs)
	case PolarizationY:
		return m.Response(RotateFeed(dirs))
	default:
		return nil, NewConfigError(fmt.Sprintf("unknown polarization '%s'", pol))
	}
}

// AltAz returns the topocentric direction for an altitude and azimuth in
// radians, azimuth measured from north through east.
func AltAz(alt, az float64) r3.Vec {
	return r3.Vec{
		X: math.Cos(alt) * math.Sin(az),
		Y: math.Cos(alt) * math.Cos(az),
		Z: math.Sin(alt),
	}
}
