package beam

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	EastWest Axis = iota
	NorthSouth
)

// HalfPower is the response level bounding the main lobe
const HalfPower = 0.5

// ErrNoHalfPower is returned when no sample of a cut reaches half power
var ErrNoHalfPower = errors.New("response never reaches half power")

// Axis selects the plane of a beam cut
type Axis int

func (a Axis) String() string {
	switch a {
	case EastWest:
		return "E-W"
	case NorthSouth:
		return "N-S"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// CutDirections returns directions tilted from zenith by each angle (radians)
// in the plane of the axis. Positive angles tilt east or north.
func CutDirections(axis Axis, angles []float64) []r3.Vec {
	dirs := make([]r3.Vec, len(angles))
	for i, a := range angles {
		s, c := math.Sincos(a)
		switch axis {
		case NorthSouth:
			dirs[i] = r3.Vec{Y: s, Z: c}
		default:
			dirs[i] = r3.Vec{X: s, Z: c}
		}
	}
	return dirs
}

// Cut evaluates m along an axis. Rows are frequencies, columns are angles.
func Cut(m Model, axis Axis, angles []float64) (*mat.Dense, error) {
	return m.Response(CutDirections(axis, angles))
}

// HalfPowerBounds returns the first and the last angle at which the response
// is at least half power.
func HalfPowerBounds(angles, resp []float64) (lo, hi float64, err error) {
	if len(angles) != len(resp) {
		return 0, 0, fmt.Errorf("%w: %d angles, %d responses", ErrShapeMismatch, len(angles), len(resp))
	}

	first, last := -1, -1
	for i, r := range resp {
		if r >= HalfPower {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, ErrNoHalfPower
	}
	return angles[first], angles[last], nil
}
