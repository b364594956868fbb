package app

import (
	"math"

	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

const (
	defaultBinCount = 1024

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20
)

// ValueBounds is the value range mapped onto the color scale
type ValueBounds struct {
	Min  float64
	Max  float64
	Mean float64
}

// widen makes sure the bounds span a non-empty range
func (b ValueBounds) widen() ValueBounds {
	if b.Max > b.Min {
		return b
	}
	pad := math.Max(math.Abs(b.Min)*0.01, 0.5)
	b.Min -= pad
	b.Max += pad
	return b
}

// ValueHistogram counts valid samples in equal-width bins spanning the
// range of the data
type ValueHistogram struct {
	bins       []uint64
	totalCount uint64
	min        float64
	max        float64
	binWidth   float64
	sum        float64
}

// NewValueHistogram builds a histogram of the valid samples. It returns
// vis.ErrNoValidData if every sample is flagged.
func NewValueHistogram(m *vis.Masked[float64], binCount int) (*ValueHistogram, error) {
	lo, hi, ok := vis.MinMax(m)
	if !ok {
		return nil, vis.ErrNoValidData
	}
	if binCount <= 0 {
		binCount = defaultBinCount
	}

	h := &ValueHistogram{
		bins: make([]uint64, binCount),
		min:  lo,
		max:  hi,
	}
	if hi > lo {
		h.binWidth = (hi - lo) / float64(binCount)
	}

	s := m.Shape()
	for t := 0; t < s.Time; t++ {
		for f := 0; f < s.Freq; f++ {
			for p := 0; p < s.NumPol(); p++ {
				if v, ok := m.Value(t, f, p); ok {
					h.Update(v)
				}
			}
		}
	}
	return h, nil
}

// getBinIndex converts a value to its bin index
func (h *ValueHistogram) getBinIndex(v float64) int {
	if h.binWidth == 0 {
		return 0
	}
	bin := int((v - h.min) / h.binWidth)
	return max(0, min(bin, len(h.bins)-1))
}

// binValue returns the lower edge of a bin
func (h *ValueHistogram) binValue(bin int) float64 {
	return h.min + float64(bin)*h.binWidth
}

// Update adds a value to the histogram
func (h *ValueHistogram) Update(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	h.bins[h.getBinIndex(v)]++
	h.totalCount++
	h.sum += v
}

// Count returns the number of values in the histogram
func (h *ValueHistogram) Count() uint64 {
	return h.totalCount
}

// GetPercentileBounds returns bounds clipped at the given percentile at both
// ends of the distribution. Small histograms return the full range.
func (h *ValueHistogram) GetPercentileBounds(percentile float64) ValueBounds {
	bounds := ValueBounds{Min: h.min, Max: h.max}
	if h.totalCount > 0 {
		bounds.Mean = h.sum / float64(h.totalCount)
	}
	if h.totalCount < minimumSampleCount || percentile <= 0 {
		return bounds.widen()
	}

	target := uint64(float64(h.totalCount) * percentile / 100)

	var count uint64
	for bin := 0; bin < len(h.bins); bin++ {
		count += h.bins[bin]
		if count > target {
			bounds.Min = h.binValue(bin)
			break
		}
	}

	count = 0
	for bin := len(h.bins) - 1; bin >= 0; bin-- {
		count += h.bins[bin]
		if count > target {
			bounds.Max = math.Min(h.binValue(bin+1), h.max)
			break
		}
	}

	return bounds.widen()
}

// Equalize maps every valid sample onto its cumulative fraction of the
// histogram, spreading the values evenly over [0, 1]. Flagged samples keep
// their flags.
func (h *ValueHistogram) Equalize(m *vis.Masked[float64]) (*vis.Masked[float64], error) {
	cdf := make([]float64, len(h.bins))
	var count uint64
	for i, n := range h.bins {
		count += n
		if h.totalCount > 0 {
			cdf[i] = float64(count) / float64(h.totalCount)
		}
	}

	values := m.Values()
	s := values.Shape()
	for t := 0; t < s.Time; t++ {
		for f := 0; f < s.Freq; f++ {
			for p := 0; p < s.NumPol(); p++ {
				if v, ok := m.Value(t, f, p); ok && !math.IsNaN(v) {
					values.Set(t, f, p, cdf[h.getBinIndex(v)])
				}
			}
		}
	}
	return vis.NewMasked(values, m.Mask())
}
