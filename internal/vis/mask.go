package vis

import (
	"fmt"
	"slices"
)

// IndexRange is a half-open range of indices [Start, End)
type IndexRange struct {
	Start int
	End   int
}

// Len returns the number of indices in the range
func (r IndexRange) Len() int {
	return r.End - r.Start
}

func (r IndexRange) check(n int) error {
	if r.Start < 0 || r.End > n || r.Start >= r.End {
		return fmt.Errorf("%w: range [%d, %d) outside axis of length %d", ErrShapeMismatch, r.Start, r.End, n)
	}
	return nil
}

// Mask flags samples of a visibility array, true marks a sample invalid.
// A mask with Pol == 0 applies to every polarization of a 3-D array.
type Mask struct {
	shape Shape
	data  []bool
}

// NewMask creates a mask with nothing flagged
func NewMask(shape Shape) (*Mask, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	return &Mask{shape: shape, data: make([]bool, shape.Len())}, nil
}

// NewMaskFrom creates a mask holding a copy of data
func NewMaskFrom(shape Shape, data []bool) (*Mask, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("%w: %d flags for shape %s", ErrShapeMismatch, len(data), shape)
	}
	return &Mask{shape: shape, data: slices.Clone(data)}, nil
}

func (m *Mask) Shape() Shape {
	return m.shape
}

// At reports whether the sample is flagged, broadcasting over polarization
// for 2-D masks.
func (m *Mask) At(t, f, p int) bool {
	if m.shape.Pol == 0 {
		p = 0
	}
	return m.data[m.shape.index(t, f, p)]
}

func (m *Mask) Set(t, f, p int, flagged bool) {
	if m.shape.Pol == 0 {
		p = 0
	}
	m.data[m.shape.index(t, f, p)] = flagged
}

// Clone returns a deep copy
func (m *Mask) Clone() *Mask {
	return &Mask{shape: m.shape, data: slices.Clone(m.data)}
}

// Count returns the number of flagged samples
func (m *Mask) Count() int {
	var n int
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// compatible checks that the mask can be applied to an array of the given
// shape, either identical or [time, freq] broadcast over polarization.
func (m *Mask) compatible(s Shape) error {
	if m.shape == s {
		return nil
	}
	if m.shape.Pol == 0 && m.shape.Time == s.Time && m.shape.Freq == s.Freq {
		return nil
	}
	return fmt.Errorf("%w: mask %s, visibilities %s", ErrShapeMismatch, m.shape, s)
}

// FlagTimes flags every sample within the time ranges
func (m *Mask) FlagTimes(ranges ...IndexRange) error {
	for _, r := range ranges {
		if err := r.check(m.shape.Time); err != nil {
			return fmt.Errorf("flagging times: %w", err)
		}
	}
	for _, r := range ranges {
		lo := m.shape.index(r.Start, 0, 0)
		hi := m.shape.index(r.End, 0, 0)
		for i := lo; i < hi; i++ {
			m.data[i] = true
		}
	}
	return nil
}

// FlagFreqs flags every sample within the frequency ranges
func (m *Mask) FlagFreqs(ranges ...IndexRange) error {
	for _, r := range ranges {
		if err := r.check(m.shape.Freq); err != nil {
			return fmt.Errorf("flagging frequencies: %w", err)
		}
	}
	for _, r := range ranges {
		for t := 0; t < m.shape.Time; t++ {
			for f := r.Start; f < r.End; f++ {
				for p := 0; p < m.shape.NumPol(); p++ {
					m.data[m.shape.index(t, f, p)] = true
				}
			}
		}
	}
	return nil
}

// GoodRange returns the smallest range along the axis that contains every
// index not flagged across all other axes. ok is false if everything is
// flagged.
func (m *Mask) GoodRange(axis Axis) (r IndexRange, ok bool) {
	n := m.shape.Dim(axis)
	first, last := -1, -1
	for i := 0; i < n; i++ {
		if !m.allFlagged(axis, i) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return IndexRange{}, false
	}
	return IndexRange{Start: first, End: last + 1}, true
}

func (m *Mask) allFlagged(axis Axis, i int) bool {
	s := m.shape
	for t := 0; t < s.Time; t++ {
		if axis == AxisTime && t != i {
			continue
		}
		for f := 0; f < s.Freq; f++ {
			if axis == AxisFreq && f != i {
				continue
			}
			for p := 0; p < s.NumPol(); p++ {
				if axis == AxisPol && p != i {
					continue
				}
				if !m.data[s.index(t, f, p)] {
					return false
				}
			}
		}
	}
	return true
}

// Slice returns the sub-mask of the half-open time and frequency ranges
func (m *Mask) Slice(times, freqs IndexRange) (*Mask, error) {
	if err := times.check(m.shape.Time); err != nil {
		return nil, err
	}
	if err := freqs.check(m.shape.Freq); err != nil {
		return nil, err
	}

	shape := Shape{Time: times.Len(), Freq: freqs.Len(), Pol: m.shape.Pol}
	out := &Mask{shape: shape, data: make([]bool, 0, shape.Len())}
	for t := times.Start; t < times.End; t++ {
		lo := m.shape.index(t, freqs.Start, 0)
		hi := m.shape.index(t, freqs.End-1, m.shape.NumPol()-1) + 1
		out.data = append(out.data, m.data[lo:hi]...)
	}
	return out, nil
}

// Trim cuts the array and its mask down to the good time and frequency
// ranges of the mask.
func Trim[T Sample](a *Array[T], m *Mask) (*Array[T], *Mask, error) {
	if err := m.compatible(a.shape); err != nil {
		return nil, nil, err
	}

	times, ok := m.GoodRange(AxisTime)
	if !ok {
		return nil, nil, ErrNoValidData
	}
	freqs, _ := m.GoodRange(AxisFreq)

	ta, err := a.Slice(times, freqs)
	if err != nil {
		return nil, nil, err
	}
	tm, err := m.Slice(times, freqs)
	if err != nil {
		return nil, nil, err
	}
	return ta, tm, nil
}
