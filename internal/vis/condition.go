package vis

import (
	"fmt"
	"strings"
)

const (
	// ModePass returns the visibilities unchanged
	ModePass Mode = iota

	// ModeMask marks flagged samples invalid without altering them
	ModeMask

	// ModeNoiseFlag blanks, or interpolates over, noise-source-on samples
	ModeNoiseFlag
)

var modeNames = map[Mode]string{
	ModePass:      "pass",
	ModeMask:      "mask",
	ModeNoiseFlag: "noise",
}

// Mode selects how Condition treats flagged or contaminated samples
type Mode int

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "pass", "mask" or "noise"
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: '%s'", ErrInvalidMode, s)
}

// InsufficientSamplesError reports a channel that has fewer noise-off
// samples than an interpolant needs.
type InsufficientSamplesError struct {
	Freq int
	Pol  int
	Have int
	Need int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples: channel %d pol %d has %d noise-off samples, need %d", e.Freq, e.Pol, e.Have, e.Need)
}

func (e *InsufficientSamplesError) Is(target error) bool {
	return target == ErrInsufficientSamples
}

// Condition prepares a visibility array for display. Inputs are never
// modified and either a complete result or an error is returned.
//
//   - ModePass returns the values unchanged, nothing is flagged.
//   - ModeMask returns the values with mask applied.
//   - ModeNoiseFlag replaces samples at times where noiseOn is true with NaN,
//     or with interpolate set, with values of a cubic spline fitted per
//     frequency channel and polarization to the noise-off samples. Real and
//     imaginary parts are interpolated separately.
//
// mask may be nil, or have the shape of vis, or be [time, freq] for a 3-D vis.
// noiseOn, when given, must have one entry per time sample.
func Condition[T Sample](vis *Array[T], mask *Mask, mode Mode, noiseOn []bool, interpolate bool) (*Masked[T], error) {
	if _, ok := modeNames[mode]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	if interpolate && mode != ModeNoiseFlag {
		return nil, fmt.Errorf("%w: interpolation requires noise mode, got %s", ErrInvalidMode, mode)
	}
	if vis == nil {
		return nil, fmt.Errorf("%w: no visibilities", ErrShapeMismatch)
	}
	if mask != nil {
		if err := mask.compatible(vis.shape); err != nil {
			return nil, err
		}
	}
	if noiseOn != nil && len(noiseOn) != vis.shape.Time {
		return nil, fmt.Errorf("%w: noise indicator has %d entries, visibilities have %d times", ErrShapeMismatch, len(noiseOn), vis.shape.Time)
	}

	switch mode {
	case ModeMask:
		return NewMasked(vis, mask)

	case ModeNoiseFlag:
		if noiseOn == nil {
			return nil, fmt.Errorf("%w: noise mode requires a noise-source indicator", ErrInvalidMode)
		}

		var out *Array[T]
		var err error
		if interpolate {
			out, err = interpolateNoise(vis, noiseOn)
		} else {
			out = blankNoise(vis, noiseOn)
		}
		if err != nil {
			return nil, err
		}
		return NewMasked(out, nil)

	default:
		return NewMasked(vis, nil)
	}
}

func blankNoise[T Sample](vis *Array[T], noiseOn []bool) *Array[T] {
	out := vis.Clone()
	s := out.shape
	blank := nan[T]()
	for t, on := range noiseOn {
		if !on {
			continue
		}
		for f := 0; f < s.Freq; f++ {
			for p := 0; p < s.NumPol(); p++ {
				out.Set(t, f, p, blank)
			}
		}
	}
	return out
}

func interpolateNoise[T Sample](vis *Array[T], noiseOn []bool) (*Array[T], error) {
	var on, off []int
	for t, v := range noiseOn {
		if v {
			on = append(on, t)
		} else {
			off = append(off, t)
		}
	}

	out := vis.Clone()
	if len(on) == 0 {
		return out, nil
	}
	if len(off) < MinSplinePoints {
		return nil, &InsufficientSamplesError{Have: len(off), Need: MinSplinePoints}
	}

	xs := make([]float64, len(off))
	for i, t := range off {
		xs[i] = float64(t)
	}

	withImag := isComplex[T]()
	re := make([]float64, len(off))
	im := make([]float64, len(off))

	s := vis.shape
	for f := 0; f < s.Freq; f++ {
		for p := 0; p < s.NumPol(); p++ {
			for i, t := range off {
				c := toComplex(vis.At(t, f, p))
				re[i], im[i] = real(c), imag(c)
			}

			reSpline, err := fitSpline(xs, re)
			if err != nil {
				return nil, channelError(err, f, p)
			}
			var imSpline *spline
			if withImag {
				if imSpline, err = fitSpline(xs, im); err != nil {
					return nil, channelError(err, f, p)
				}
			}

			for _, t := range on {
				x := float64(t)
				v := complex(reSpline.Predict(x), 0)
				if imSpline != nil {
					v = complex(real(v), imSpline.Predict(x))
				}
				out.Set(t, f, p, fromComplex[T](v))
			}
		}
	}
	return out, nil
}

func channelError(err error, f, p int) error {
	if e, ok := err.(*InsufficientSamplesError); ok {
		e.Freq, e.Pol = f, p
		return e
	}
	return fmt.Errorf("channel %d pol %d: %w", f, p, err)
}
