package vis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMasked(t *testing.T, rows [][]float64, flagged [][2]int) *Masked[float64] {
	t.Helper()

	a, err := FromRows(rows)
	require.NoError(t, err, "Failed to create array")
	m, err := NewMask(a.Shape())
	require.NoError(t, err, "Failed to create mask")
	for _, tf := range flagged {
		m.Set(tf[0], tf[1], 0, true)
	}
	masked, err := NewMasked(a, m)
	require.NoError(t, err, "Failed to apply mask")
	return masked
}

func TestMasked_Aggregations(t *testing.T) {
	m := newTestMasked(t, [][]float64{
		{1, 10, 100},
		{2, 20, 200},
		{3, 30, 300},
		{4, 40, 400},
	}, [][2]int{{3, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 1}})

	mean := m.Mean(AxisTime)
	v, ok := mean.Value(0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	_, ok = mean.Value(0, 1, 0)
	assert.False(t, ok)

	med := Median(m, AxisTime)
	v, ok = med.Value(0, 2, 0)
	require.True(t, ok)
	assert.Equal(t, 250.0, v)

	std := Std(m, AxisTime)
	v, ok = std.Value(0, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(2.0/3.0), v, 1e-12)

	series := m.Mean(AxisFreq)
	assert.Equal(t, Shape{Time: 4, Freq: 1}, series.Shape())
	v, ok = series.Value(3, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 400.0, v)

	lo, hi, ok := MinMax(m)
	require.True(t, ok)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 400.0, hi)

	all, ok := m.MeanAll()
	require.True(t, ok)
	assert.InDelta(t, (1+2+3+100+200+300+400)/7.0, all, 1e-12)
}

func TestMasked_AllFlagged(t *testing.T) {
	m := newTestMasked(t, [][]float64{{1, 2}}, [][2]int{{0, 0}, {0, 1}})

	_, ok := m.MeanAll()
	assert.False(t, ok)
	_, _, ok = MinMax(m)
	assert.False(t, ok)
	_, _, ok = RescaleBounds(m, 3)
	assert.False(t, ok)
	assert.Zero(t, m.Count())
}

func TestMasked_Series(t *testing.T) {
	m := newTestMasked(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, [][2]int{{1, 1}})

	vals, valid := m.Series(AxisTime, 1, 0)
	assert.Equal(t, []float64{2, 4, 6}, vals)
	assert.Equal(t, []bool{true, false, true}, valid)

	vals, valid = m.Series(AxisFreq, 2, 0)
	assert.Equal(t, []float64{5, 6}, vals)
	assert.Equal(t, []bool{true, true}, valid)
}

func TestMasked_FilledAndMaskInvalid(t *testing.T) {
	m := newTestMasked(t, [][]float64{{1, math.NaN()}, {3, 4}}, [][2]int{{1, 0}})

	filled := m.Filled(-1)
	assert.Equal(t, -1.0, filled.At(1, 0, 0))
	assert.Equal(t, 3, m.Count())

	clean := m.MaskInvalid()
	assert.False(t, clean.Valid(0, 1, 0))
	assert.True(t, m.Valid(0, 1, 0), "original must keep its mask")
}

func TestRescaleBounds(t *testing.T) {
	m := newTestMasked(t, [][]float64{{1, 3}, {1, 3}, {100, 0}}, [][2]int{{2, 0}, {2, 1}})

	lo, hi, ok := RescaleBounds(m, 2)
	require.True(t, ok)
	assert.InDelta(t, 0, lo, 1e-12)
	assert.InDelta(t, 4, hi, 1e-12)
}

func TestMask_FlagRangesAndTrim(t *testing.T) {
	rows := make([][]float64, 6)
	for i := range rows {
		rows[i] = []float64{float64(i), float64(10 * i), float64(100 * i), float64(1000 * i)}
	}
	a, err := FromRows(rows)
	require.NoError(t, err)

	m, err := NewMask(a.Shape())
	require.NoError(t, err)
	require.NoError(t, m.FlagTimes(IndexRange{Start: 0, End: 2}, IndexRange{Start: 5, End: 6}))
	require.NoError(t, m.FlagFreqs(IndexRange{Start: 3, End: 4}))

	assert.Error(t, m.FlagTimes(IndexRange{Start: 4, End: 7}))
	assert.Error(t, m.FlagFreqs(IndexRange{Start: 2, End: 2}))

	times, ok := m.GoodRange(AxisTime)
	require.True(t, ok)
	assert.Equal(t, IndexRange{Start: 2, End: 5}, times)
	freqs, ok := m.GoodRange(AxisFreq)
	require.True(t, ok)
	assert.Equal(t, IndexRange{Start: 0, End: 3}, freqs)

	ta, tm, err := Trim(a, m)
	require.NoError(t, err)
	assert.Equal(t, Shape{Time: 3, Freq: 3}, ta.Shape())
	assert.Equal(t, Shape{Time: 3, Freq: 3}, tm.Shape())
	assert.Equal(t, 2.0, ta.At(0, 0, 0))
	assert.Equal(t, 400.0, ta.At(2, 2, 0))
	assert.Zero(t, tm.Count())

	require.NoError(t, m.FlagTimes(IndexRange{Start: 0, End: 6}))
	_, _, err = Trim(a, m)
	assert.ErrorIs(t, err, ErrNoValidData)
}

func TestComponentAndConj(t *testing.T) {
	a, err := FromRows([][]complex128{{complex(3, 4), complex(0, -2)}})
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 2}, Component(a, PartAbs).Data())
	assert.Equal(t, []float64{3, 0}, Component(a, PartReal).Data())
	assert.Equal(t, []float64{4, -2}, Component(a, PartImag).Data())
	assert.InDelta(t, -math.Pi/2, Component(a, PartPhase).At(0, 1, 0), 1e-15)

	c := Conj(a)
	assert.Equal(t, complex(3, -4), c.At(0, 0, 0))
	assert.Equal(t, complex(3, 4), a.At(0, 0, 0))
}

func TestNewArrayFrom_ShapeMismatch(t *testing.T) {
	_, err := NewArrayFrom(Shape{Time: 2, Freq: 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = NewMask(Shape{Time: 0, Freq: 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMedianFilter(t *testing.T) {
	out, err := MedianFilter([]float64{1, 5, 2, 8, 3}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 5, 3, 3}, out)

	_, err = MedianFilter([]float64{1, 2}, 2)
	assert.Error(t, err)
}

func TestBandpass(t *testing.T) {
	spec := []float64{4, 4, 100, 4, 4}
	valid := []bool{true, true, false, true, true}

	bp, err := Bandpass(spec, valid, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 4, 4, 4}, bp)

	_, err = Bandpass(spec, []bool{false, false, false, false, false}, 3)
	assert.ErrorIs(t, err, ErrNoValidData)
}
