package vis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"
)

var (
	// ErrShapeMismatch is returned when arrays, masks or indicators disagree in shape
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInsufficientSamples is returned when a channel has too few noise-off
	// samples to build an interpolant
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrInvalidMode is returned for unknown or conflicting conditioning modes
	ErrInvalidMode = errors.New("invalid mode")

	// ErrNoValidData is returned when every sample of an array is flagged
	ErrNoValidData = errors.New("no valid data")
)

// Sample is the element type of a visibility array
type Sample interface {
	float64 | complex128
}

const (
	AxisTime Axis = iota
	AxisFreq
	AxisPol
)

// Axis of a visibility array
type Axis int

func (a Axis) String() string {
	switch a {
	case AxisTime:
		return "time"
	case AxisFreq:
		return "freq"
	case AxisPol:
		return "pol"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Shape of a visibility array. Pol is 0 for [time, freq] arrays.
type Shape struct {
	Time int
	Freq int
	Pol  int
}

// NumPol returns the size of the polarization axis, 1 for 2-D arrays
func (s Shape) NumPol() int {
	if s.Pol == 0 {
		return 1
	}
	return s.Pol
}

// Len returns the number of elements
func (s Shape) Len() int {
	return s.Time * s.Freq * s.NumPol()
}

// Dim returns the size of an axis
func (s Shape) Dim(axis Axis) int {
	switch axis {
	case AxisTime:
		return s.Time
	case AxisFreq:
		return s.Freq
	default:
		return s.NumPol()
	}
}

func (s Shape) String() string {
	if s.Pol == 0 {
		return fmt.Sprintf("[%d %d]", s.Time, s.Freq)
	}
	return fmt.Sprintf("[%d %d %d]", s.Time, s.Freq, s.Pol)
}

func (s Shape) validate() error {
	if s.Time <= 0 || s.Freq <= 0 || s.Pol < 0 {
		return fmt.Errorf("%w: invalid shape %s", ErrShapeMismatch, s)
	}
	return nil
}

// collapse returns the shape with the axis reduced to a single element
func (s Shape) collapse(axis Axis) Shape {
	switch axis {
	case AxisTime:
		s.Time = 1
	case AxisFreq:
		s.Freq = 1
	default:
		if s.Pol > 0 {
			s.Pol = 1
		}
	}
	return s
}

func (s Shape) index(t, f, p int) int {
	return (t*s.Freq+f)*s.NumPol() + p
}

// Array is a dense visibility array indexed [time, freq, pol] in row-major order
type Array[T Sample] struct {
	shape Shape
	data  []T
}

// NewArray allocates a zero-filled array
func NewArray[T Sample](shape Shape) (*Array[T], error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	return &Array[T]{shape: shape, data: make([]T, shape.Len())}, nil
}

// NewArrayFrom creates an array holding a copy of data
func NewArrayFrom[T Sample](shape Shape, data []T) (*Array[T], error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrShapeMismatch, len(data), shape)
	}
	return &Array[T]{shape: shape, data: slices.Clone(data)}, nil
}

// FromRows creates a [time, freq] array from one row per time sample
func FromRows[T Sample](rows [][]T) (*Array[T], error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrShapeMismatch)
	}

	shape := Shape{Time: len(rows), Freq: len(rows[0])}
	data := make([]T, 0, len(rows)*len(rows[0]))
	for i, row := range rows {
		if len(row) != shape.Freq {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShapeMismatch, i, len(row), shape.Freq)
		}
		data = append(data, row...)
	}
	return NewArrayFrom(shape, data)
}

func (a *Array[T]) Shape() Shape {
	return a.shape
}

func (a *Array[T]) At(t, f, p int) T {
	return a.data[a.shape.index(t, f, p)]
}

func (a *Array[T]) Set(t, f, p int, v T) {
	a.data[a.shape.index(t, f, p)] = v
}

// Data returns a copy of the underlying row-major values
func (a *Array[T]) Data() []T {
	return slices.Clone(a.data)
}

// Clone returns a deep copy
func (a *Array[T]) Clone() *Array[T] {
	return &Array[T]{shape: a.shape, data: slices.Clone(a.data)}
}

// Equal reports whether both arrays have the same shape and bit-identical
// values, NaN compares equal to NaN.
func (a *Array[T]) Equal(b *Array[T]) bool {
	if a.shape != b.shape {
		return false
	}
	return slices.EqualFunc(a.data, b.data, func(x, y T) bool {
		return x == y || (isNaN(x) && isNaN(y))
	})
}

// Slice returns the sub-array of the half-open time and frequency ranges
func (a *Array[T]) Slice(times, freqs IndexRange) (*Array[T], error) {
	if err := times.check(a.shape.Time); err != nil {
		return nil, err
	}
	if err := freqs.check(a.shape.Freq); err != nil {
		return nil, err
	}

	shape := Shape{Time: times.Len(), Freq: freqs.Len(), Pol: a.shape.Pol}
	out := &Array[T]{shape: shape, data: make([]T, 0, shape.Len())}
	for t := times.Start; t < times.End; t++ {
		lo := a.shape.index(t, freqs.Start, 0)
		hi := a.shape.index(t, freqs.End-1, a.shape.NumPol()-1) + 1
		out.data = append(out.data, a.data[lo:hi]...)
	}
	return out, nil
}

const (
	PartAbs Part = iota
	PartReal
	PartImag
	PartPhase
)

// Part selects the real-valued component extracted from a visibility
type Part int

func (p Part) String() string {
	switch p {
	case PartAbs:
		return "abs"
	case PartReal:
		return "real"
	case PartImag:
		return "imag"
	case PartPhase:
		return "phase"
	default:
		return fmt.Sprintf("Part(%d)", int(p))
	}
}

// Component extracts a real-valued part of every sample
func Component[T Sample](a *Array[T], part Part) *Array[float64] {
	out := &Array[float64]{shape: a.shape, data: make([]float64, len(a.data))}
	for i, v := range a.data {
		c := toComplex(v)
		switch part {
		case PartReal:
			out.data[i] = real(c)
		case PartImag:
			out.data[i] = imag(c)
		case PartPhase:
			out.data[i] = cmplx.Phase(c)
		default:
			out.data[i] = cmplx.Abs(c)
		}
	}
	return out
}

// Conj returns the complex conjugate, real arrays are copied unchanged
func Conj[T Sample](a *Array[T]) *Array[T] {
	out := a.Clone()
	for i, v := range out.data {
		out.data[i] = fromComplex[T](cmplx.Conj(toComplex(v)))
	}
	return out
}

func toComplex[T Sample](v T) complex128 {
	switch x := any(v).(type) {
	case complex128:
		return x
	case float64:
		return complex(x, 0)
	}
	return 0
}

func fromComplex[T Sample](c complex128) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(c).(T)
	default:
		return any(real(c)).(T)
	}
}

func nan[T Sample]() T {
	return fromComplex[T](complex(math.NaN(), math.NaN()))
}

func isNaN[T Sample](v T) bool {
	return cmplx.IsNaN(toComplex(v))
}

func isComplex[T Sample]() bool {
	var zero T
	_, ok := any(zero).(complex128)
	return ok
}
