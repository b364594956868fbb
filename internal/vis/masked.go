package vis

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Masked pairs values with per-sample validity. Every aggregation skips
// invalid samples and reports "no data" for a slice with no valid sample,
// never a numeric fill.
type Masked[T Sample] struct {
	values  *Array[T]
	invalid []bool
}

// NewMasked applies mask to a copy of values. A nil mask flags nothing.
func NewMasked[T Sample](values *Array[T], mask *Mask) (*Masked[T], error) {
	m := &Masked[T]{
		values:  values.Clone(),
		invalid: make([]bool, len(values.data)),
	}
	if mask == nil {
		return m, nil
	}
	if err := mask.compatible(values.shape); err != nil {
		return nil, err
	}

	s := values.shape
	for t := 0; t < s.Time; t++ {
		for f := 0; f < s.Freq; f++ {
			for p := 0; p < s.NumPol(); p++ {
				m.invalid[s.index(t, f, p)] = mask.At(t, f, p)
			}
		}
	}
	return m, nil
}

func (m *Masked[T]) Shape() Shape {
	return m.values.shape
}

// Values returns a copy of the underlying values, flagged samples included
func (m *Masked[T]) Values() *Array[T] {
	return m.values.Clone()
}

// Mask returns the validity of every sample as a mask
func (m *Masked[T]) Mask() *Mask {
	return &Mask{shape: m.values.shape, data: slices.Clone(m.invalid)}
}

// Value returns the sample and whether it is valid
func (m *Masked[T]) Value(t, f, p int) (T, bool) {
	i := m.values.shape.index(t, f, p)
	return m.values.data[i], !m.invalid[i]
}

// Valid reports whether the sample is not flagged
func (m *Masked[T]) Valid(t, f, p int) bool {
	return !m.invalid[m.values.shape.index(t, f, p)]
}

// Count returns the number of valid samples
func (m *Masked[T]) Count() int {
	var n int
	for _, v := range m.invalid {
		if !v {
			n++
		}
	}
	return n
}

// Filled returns a copy of the values with flagged samples replaced by fill
func (m *Masked[T]) Filled(fill T) *Array[T] {
	out := m.values.Clone()
	for i, v := range m.invalid {
		if v {
			out.data[i] = fill
		}
	}
	return out
}

// Series returns the values and validity along an axis at the given
// position of the other two axes. For AxisTime the position is (freq, pol),
// for AxisFreq it is (time, pol) and for AxisPol it is (time, freq).
func (m *Masked[T]) Series(axis Axis, i, j int) ([]T, []bool) {
	s := m.values.shape
	n := s.Dim(axis)
	vals := make([]T, n)
	valid := make([]bool, n)
	for k := 0; k < n; k++ {
		var idx int
		switch axis {
		case AxisTime:
			idx = s.index(k, i, j)
		case AxisFreq:
			idx = s.index(i, k, j)
		default:
			idx = s.index(i, j, k)
		}
		vals[k] = m.values.data[idx]
		valid[k] = !m.invalid[idx]
	}
	return vals, valid
}

func (m *Masked[T]) validValues() []T {
	vals := make([]T, 0, len(m.invalid))
	for i, v := range m.values.data {
		if !m.invalid[i] {
			vals = append(vals, v)
		}
	}
	return vals
}

// Mean reduces the axis to the mean of its valid samples. The reduced axis
// keeps a length of one.
func (m *Masked[T]) Mean(axis Axis) *Masked[T] {
	return reduce(m, axis, mean[T])
}

// MeanAll returns the mean of every valid sample, ok is false if there is none
func (m *Masked[T]) MeanAll() (v T, ok bool) {
	vals := m.validValues()
	if len(vals) == 0 {
		return v, false
	}
	return mean(vals), true
}

// Median reduces the axis to the median of its valid samples
func Median(m *Masked[float64], axis Axis) *Masked[float64] {
	return reduce(m, axis, median)
}

// Std reduces the axis to the population standard deviation of its valid
// samples
func Std(m *Masked[float64], axis Axis) *Masked[float64] {
	return reduce(m, axis, func(vals []float64) float64 {
		return stat.PopStdDev(vals, nil)
	})
}

// MinMax returns the smallest and the largest valid sample
func MinMax(m *Masked[float64]) (lo, hi float64, ok bool) {
	vals := m.validValues()
	if len(vals) == 0 {
		return 0, 0, false
	}
	return floats.Min(vals), floats.Max(vals), true
}

// MeanStd returns the mean and the population standard deviation of every
// valid sample
func MeanStd(m *Masked[float64]) (mean, std float64, ok bool) {
	vals := m.validValues()
	if len(vals) == 0 {
		return 0, 0, false
	}
	mean, std = stat.PopMeanStdDev(vals, nil)
	return mean, std, true
}

// RescaleBounds returns the display range mean ± k·std over valid samples
func RescaleBounds(m *Masked[float64], k float64) (lo, hi float64, ok bool) {
	mean, std, ok := MeanStd(m)
	if !ok {
		return 0, 0, false
	}
	return mean - k*std, mean + k*std, true
}

func reduce[T Sample](m *Masked[T], axis Axis, fn func([]T) T) *Masked[T] {
	in := m.values.shape
	out := in.collapse(axis)

	res := &Masked[T]{
		values:  &Array[T]{shape: out, data: make([]T, out.Len())},
		invalid: make([]bool, out.Len()),
	}

	buf := make([]T, 0, in.Dim(axis))
	for t := 0; t < out.Time; t++ {
		for f := 0; f < out.Freq; f++ {
			for p := 0; p < out.NumPol(); p++ {
				buf = buf[:0]
				for k := 0; k < in.Dim(axis); k++ {
					var idx int
					switch axis {
					case AxisTime:
						idx = in.index(k, f, p)
					case AxisFreq:
						idx = in.index(t, k, p)
					default:
						idx = in.index(t, f, k)
					}
					if !m.invalid[idx] {
						buf = append(buf, m.values.data[idx])
					}
				}

				o := out.index(t, f, p)
				if len(buf) == 0 {
					res.invalid[o] = true
					continue
				}
				res.values.data[o] = fn(buf)
			}
		}
	}
	return res
}

func mean[T Sample](vals []T) T {
	switch v := any(vals).(type) {
	case []float64:
		return any(stat.Mean(v, nil)).(T)
	case []complex128:
		re := make([]float64, len(v))
		im := make([]float64, len(v))
		for i, c := range v {
			re[i], im[i] = real(c), imag(c)
		}
		return any(complex(stat.Mean(re, nil), stat.Mean(im, nil))).(T)
	}
	panic("vis: unsupported sample type")
}

// median matches the midpoint convention for an even number of samples
func median(vals []float64) float64 {
	sorted := slices.Clone(vals)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// nanToInvalid marks non-finite samples invalid
func (m *Masked[T]) nanToInvalid() {
	for i, v := range m.values.data {
		c := toComplex(v)
		if math.IsNaN(real(c)) || math.IsNaN(imag(c)) || math.IsInf(real(c), 0) || math.IsInf(imag(c), 0) {
			m.invalid[i] = true
		}
	}
}

// MaskInvalid returns a copy with NaN and infinite samples also flagged
func (m *Masked[T]) MaskInvalid() *Masked[T] {
	out := &Masked[T]{values: m.values.Clone(), invalid: slices.Clone(m.invalid)}
	out.nanToInvalid()
	return out
}
