package vis

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioNoiseOn = []bool{true, false, false, true, false, false, true, false, false, true}

func rampVis(t *testing.T) *Array[complex128] {
	t.Helper()

	rows := make([][]complex128, 10)
	for ti := range rows {
		rows[ti] = make([]complex128, 4)
		for f := range rows[ti] {
			rows[ti][f] = complex(2*float64(ti)+float64(f), -0.5*float64(ti)+3)
		}
	}
	a, err := FromRows(rows)
	require.NoError(t, err, "Failed to create array")
	return a
}

func TestCondition_InterpolatesLinearRamp(t *testing.T) {
	in := rampVis(t)
	orig := in.Clone()

	out, err := Condition(in, nil, ModeNoiseFlag, scenarioNoiseOn, true)
	require.NoError(t, err)
	assert.True(t, in.Equal(orig), "input must not be modified")

	for ti, on := range scenarioNoiseOn {
		for f := 0; f < 4; f++ {
			got, ok := out.Value(ti, f, 0)
			require.True(t, ok)
			want := in.At(ti, f, 0)
			if !on {
				assert.Equal(t, want, got, "off sample t=%d f=%d changed", ti, f)
				continue
			}
			assert.InDelta(t, real(want), real(got), 1e-9, "t=%d f=%d", ti, f)
			assert.InDelta(t, imag(want), imag(got), 1e-9, "t=%d f=%d", ti, f)
		}
	}
}

func TestCondition_InterpolatesCubic(t *testing.T) {
	cubic := func(x float64) float64 { return 0.1*x*x*x - x*x + 2*x - 1 }

	rows := make([][]float64, 10)
	for ti := range rows {
		rows[ti] = []float64{cubic(float64(ti))}
	}
	in, err := FromRows(rows)
	require.NoError(t, err)

	out, err := Condition(in, nil, ModeNoiseFlag, scenarioNoiseOn, true)
	require.NoError(t, err)

	for ti := range scenarioNoiseOn {
		got, _ := out.Value(ti, 0, 0)
		assert.InDelta(t, cubic(float64(ti)), got, 1e-8, "t=%d", ti)
	}
}

func TestCondition_InterpolationIdempotentAndDeterministic(t *testing.T) {
	rows := make([][]complex128, 10)
	for ti := range rows {
		x := float64(ti)
		rows[ti] = []complex128{
			complex(math.Sin(x), math.Cos(x)),
			complex(x*x, -x),
			cmplx.Exp(complex(0, x/3)),
		}
	}
	in, err := FromRows(rows)
	require.NoError(t, err)

	first, err := Condition(in, nil, ModeNoiseFlag, scenarioNoiseOn, true)
	require.NoError(t, err)
	again, err := Condition(in, nil, ModeNoiseFlag, scenarioNoiseOn, true)
	require.NoError(t, err)
	assert.True(t, first.Values().Equal(again.Values()), "interpolation must be deterministic")

	twice, err := Condition(first.Values(), nil, ModeNoiseFlag, scenarioNoiseOn, true)
	require.NoError(t, err)
	assert.True(t, first.Values().Equal(twice.Values()), "interpolation must be idempotent")
}

func TestCondition_NoiseBlank(t *testing.T) {
	in := rampVis(t)

	out, err := Condition(in, nil, ModeNoiseFlag, scenarioNoiseOn, false)
	require.NoError(t, err)

	for ti, on := range scenarioNoiseOn {
		for f := 0; f < 4; f++ {
			got, _ := out.Value(ti, f, 0)
			if on {
				assert.True(t, math.IsNaN(real(got)) && math.IsNaN(imag(got)), "t=%d f=%d", ti, f)
			} else {
				assert.Equal(t, in.At(ti, f, 0), got)
			}
		}
	}

	real64, err := FromRows([][]float64{{1}, {2}, {3}})
	require.NoError(t, err)
	blanked, err := Condition(real64, nil, ModeNoiseFlag, []bool{false, true, false}, false)
	require.NoError(t, err)
	v, _ := blanked.Value(1, 0, 0)
	assert.True(t, math.IsNaN(v))
}

func TestCondition_PassIsIdentity(t *testing.T) {
	in := rampVis(t)
	mask, err := NewMask(in.Shape())
	require.NoError(t, err)
	mask.Set(2, 1, 0, true)

	out, err := Condition(in, mask, ModePass, nil, false)
	require.NoError(t, err)
	assert.True(t, in.Equal(out.Values()))
	assert.Equal(t, in.Shape().Len(), out.Count())
}

func TestCondition_MaskFullyFlaggedChannel(t *testing.T) {
	in := rampVis(t)
	mask, err := NewMask(in.Shape())
	require.NoError(t, err)
	require.NoError(t, mask.FlagFreqs(IndexRange{Start: 2, End: 3}))

	out, err := Condition(in, mask, ModeMask, nil, false)
	require.NoError(t, err)
	assert.True(t, in.Equal(out.Values()), "masking must not alter values")

	spectrum := out.Mean(AxisTime)
	assert.Equal(t, Shape{Time: 1, Freq: 4}, spectrum.Shape())
	for f := 0; f < 4; f++ {
		v, ok := spectrum.Value(0, f, 0)
		if f == 2 {
			assert.False(t, ok, "fully flagged channel must read as no data")
			continue
		}
		require.True(t, ok)
		assert.Equal(t, complex(9+float64(f), 0.75), v)
	}

	amp := Component(out.Values(), PartAbs)
	masked, err := NewMasked(amp, out.Mask())
	require.NoError(t, err)
	_, ok := Median(masked, AxisTime).Value(0, 2, 0)
	assert.False(t, ok)
	_, ok = Std(masked, AxisTime).Value(0, 2, 0)
	assert.False(t, ok)
}

func TestCondition_Errors(t *testing.T) {
	in := rampVis(t)
	badMask, err := NewMask(Shape{Time: 10, Freq: 3})
	require.NoError(t, err)
	polMask, err := NewMask(Shape{Time: 10, Freq: 4, Pol: 2})
	require.NoError(t, err)

	tests := []struct {
		name        string
		mask        *Mask
		mode        Mode
		noiseOn     []bool
		interpolate bool
		err         error
	}{
		{"unknown mode", nil, Mode(42), nil, false, ErrInvalidMode},
		{"interpolate in mask mode", nil, ModeMask, nil, true, ErrInvalidMode},
		{"interpolate in pass mode", nil, ModePass, nil, true, ErrInvalidMode},
		{"noise mode without indicator", nil, ModeNoiseFlag, nil, false, ErrInvalidMode},
		{"mask shape", badMask, ModeMask, nil, false, ErrShapeMismatch},
		{"mask with extra pol axis", polMask, ModeMask, nil, false, ErrShapeMismatch},
		{"indicator length", nil, ModeNoiseFlag, []bool{true, false}, false, ErrShapeMismatch},
		{"too few off samples", nil, ModeNoiseFlag, []bool{true, true, false, true, false, true, false, true, true, true}, true, ErrInsufficientSamples},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Condition(in, tt.mask, tt.mode, tt.noiseOn, tt.interpolate)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestCondition_InsufficientSamplesDetails(t *testing.T) {
	in := rampVis(t)
	noiseOn := []bool{true, true, false, true, false, true, false, true, true, true}

	_, err := Condition(in, nil, ModeNoiseFlag, noiseOn, true)

	var insufficient *InsufficientSamplesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 3, insufficient.Have)
	assert.Equal(t, MinSplinePoints, insufficient.Need)
}

func TestCondition_PolarizationBroadcastMask(t *testing.T) {
	shape := Shape{Time: 3, Freq: 2, Pol: 2}
	data := make([]float64, shape.Len())
	for i := range data {
		data[i] = float64(i)
	}
	in, err := NewArrayFrom(shape, data)
	require.NoError(t, err)

	mask, err := NewMask(Shape{Time: 3, Freq: 2})
	require.NoError(t, err)
	mask.Set(1, 0, 0, true)

	out, err := Condition(in, mask, ModeMask, nil, false)
	require.NoError(t, err)
	assert.False(t, out.Valid(1, 0, 0))
	assert.False(t, out.Valid(1, 0, 1))
	assert.True(t, out.Valid(1, 1, 0))
	assert.Equal(t, shape.Len()-2, out.Count())
}

func TestCondition_InterpolatesEachPolarization(t *testing.T) {
	shape := Shape{Time: 10, Freq: 1, Pol: 2}
	in, err := NewArray[float64](shape)
	require.NoError(t, err)
	for ti := 0; ti < 10; ti++ {
		in.Set(ti, 0, 0, float64(ti))
		in.Set(ti, 0, 1, -3*float64(ti)+1)
	}

	out, err := Condition(in, nil, ModeNoiseFlag, scenarioNoiseOn, true)
	require.NoError(t, err)
	for ti := 0; ti < 10; ti++ {
		xx, _ := out.Value(ti, 0, 0)
		yy, _ := out.Value(ti, 0, 1)
		assert.InDelta(t, float64(ti), xx, 1e-9)
		assert.InDelta(t, -3*float64(ti)+1, yy, 1e-9)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModePass, ModeMask, ModeNoiseFlag} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMode("smooth")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
