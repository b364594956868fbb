package vis

import (
	"fmt"
	"math"
	"slices"
)

// MedianFilter smooths a series with a running median over an odd kernel.
// The series is zero padded at both ends.
func MedianFilter(x []float64, kernel int) ([]float64, error) {
	if kernel <= 0 || kernel%2 == 0 {
		return nil, fmt.Errorf("median filter kernel must be a positive odd number, got %d", kernel)
	}

	half := kernel / 2
	out := make([]float64, len(x))
	window := make([]float64, kernel)
	for i := range x {
		for k := -half; k <= half; k++ {
			j := i + k
			if j < 0 || j >= len(x) {
				window[k+half] = 0
				continue
			}
			window[k+half] = x[j]
		}
		out[i] = median(window)
	}
	return out, nil
}

// Bandpass estimates the bandpass of a spectrum with invalid channels by
// median filtering it. Invalid channels take the value of the preceding valid
// channel, or the following one at the start of the band, before filtering.
func Bandpass(spec []float64, valid []bool, kernel int) ([]float64, error) {
	if len(spec) != len(valid) {
		return nil, fmt.Errorf("%w: %d channels, %d flags", ErrShapeMismatch, len(spec), len(valid))
	}
	if !slices.Contains(valid, true) {
		return nil, ErrNoValidData
	}

	filled := slices.Clone(spec)
	last := math.NaN()
	for i := range filled {
		if valid[i] {
			last = filled[i]
			continue
		}
		filled[i] = last
	}
	next := math.NaN()
	for i := len(filled) - 1; i >= 0; i-- {
		if valid[i] {
			next = filled[i]
			continue
		}
		if math.IsNaN(filled[i]) {
			filled[i] = next
		}
	}

	return MedianFilter(filled, kernel)
}
