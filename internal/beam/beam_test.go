package beam

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var testFreqs = []float64{700, 750, 800}

func TestDish_HalfWidth(t *testing.T) {
	d, err := NewDish(testFreqs, WithDiameter(6.0))
	require.NoError(t, err, "Failed to create dish")

	lambda := DefaultConstants().Wavelength(750)
	assert.InDelta(t, 0.4, lambda, 1e-3)
	assert.InDelta(t, 1.22*lambda/6.0, d.HalfWidth(1), 1e-15)
	assert.InDelta(t, 0.0813, d.HalfWidth(1), 1e-4)
}

func TestDish_Boresight(t *testing.T) {
	d, err := NewDish(testFreqs)
	require.NoError(t, err, "Failed to create dish")

	resp, err := d.Response([]r3.Vec{{Z: 1}})
	require.NoError(t, err)

	rows, cols := resp.Dims()
	require.Equal(t, len(testFreqs), rows)
	require.Equal(t, 1, cols)
	for i := range testFreqs {
		assert.Equal(t, 1.0, resp.At(i, 0), "frequency %d", i)
	}
}

func TestDish_OneHalfWidthOffset(t *testing.T) {
	d, err := NewDish(testFreqs, WithDiameter(6.0))
	require.NoError(t, err, "Failed to create dish")

	w := d.HalfWidth(1)
	dirs := []r3.Vec{
		{X: math.Sin(w), Z: math.Cos(w)},
		{Y: math.Sin(w), Z: math.Cos(w)},
	}
	resp, err := d.Response(dirs)
	require.NoError(t, err)

	for j := range dirs {
		assert.InDelta(t, math.Exp(-0.5), resp.At(1, j), 1e-12)

		// other frequencies follow the closed form with their own width
		for _, i := range []int{0, 2} {
			x := w / d.HalfWidth(i)
			assert.InDelta(t, math.Exp(-0.5*x*x), resp.At(i, j), 1e-12)
		}
	}
}

func TestDish_CircularlySymmetric(t *testing.T) {
	d, err := NewDish(testFreqs)
	require.NoError(t, err, "Failed to create dish")

	for _, a := range []float64{0.01, 0.05, 0.1, 0.2} {
		resp, err := d.Response([]r3.Vec{
			{X: math.Sin(a), Z: math.Cos(a)},
			{Y: math.Sin(a), Z: math.Cos(a)},
		})
		require.NoError(t, err)
		for i := range testFreqs {
			assert.Equal(t, resp.At(i, 0), resp.At(i, 1))
		}
	}
}

func TestDish_InjectedConstants(t *testing.T) {
	d, err := NewDish([]float64{750}, WithConstants(Constants{SpeedOfLight: 3e8, LengthEpsilon: LengthEpsilon}))
	require.NoError(t, err, "Failed to create dish")

	assert.InDelta(t, 1.22*0.4/6.0, d.HalfWidth(0), 1e-15)
}

func TestCylinder_BelowHorizonIsZero(t *testing.T) {
	c, err := NewCylinder(testFreqs)
	require.NoError(t, err, "Failed to create cylinder")

	dirs := []r3.Vec{
		{X: 1},
		{Y: 1},
		{X: -1},
		{Z: -1},
		{X: 0.3, Y: 0.2, Z: -0.5},
		{X: 0.6, Y: -0.8, Z: 0},
		{X: 2, Y: 3, Z: -0.0001},
	}
	resp, err := c.Response(dirs)
	require.NoError(t, err)

	for i := range testFreqs {
		for j := range dirs {
			assert.Zero(t, resp.At(i, j), "frequency %d direction %d", i, j)
		}
	}
}

func TestCylinder_Bounded(t *testing.T) {
	c, err := NewCylinder(testFreqs)
	require.NoError(t, err, "Failed to create cylinder")

	var dirs []r3.Vec
	for alt := 0.0; alt <= math.Pi/2; alt += 0.05 {
		for az := 0.0; az < 2*math.Pi; az += 0.1 {
			dirs = append(dirs, AltAz(alt, az))
		}
	}

	resp, err := c.Response(dirs)
	require.NoError(t, err)

	for i := range testFreqs {
		for j, n := range dirs {
			v := resp.At(i, j)
			assert.LessOrEqual(t, math.Abs(v), max(n.Z, 0)+1e-15)
			assert.LessOrEqual(t, math.Abs(v), 1.0)
		}
	}
}

func TestCylinder_ClosedForm(t *testing.T) {
	c, err := NewCylinder(testFreqs, WithWidth(15), WithLength(40))
	require.NoError(t, err, "Failed to create cylinder")

	zenith, err := c.Response([]r3.Vec{{Z: 1}})
	require.NoError(t, err)
	for i := range testFreqs {
		assert.Equal(t, 1.0, zenith.At(i, 0))
	}

	lambda := DefaultConstants().Wavelength(750)
	a := 0.2
	nullAngle := math.Asin(lambda / 15)
	resp, err := c.Response([]r3.Vec{
		{X: math.Sin(a), Z: math.Cos(a)},
		{Y: math.Sin(a), Z: math.Cos(a)},
		{X: math.Sin(nullAngle), Z: math.Cos(nullAngle)},
	})
	require.NoError(t, err)

	x := 15 * math.Sin(a) / lambda
	assert.InDelta(t, math.Sin(math.Pi*x)/(math.Pi*x)*math.Cos(a), resp.At(1, 0), 1e-12)

	// no directivity along the cylinder length
	assert.InDelta(t, math.Cos(a), resp.At(1, 1), 1e-12)

	// first null across the width
	assert.InDelta(t, 0, resp.At(1, 2), 1e-12)
}

func TestRotateFeed(t *testing.T) {
	c, err := NewCylinder(testFreqs)
	require.NoError(t, err, "Failed to create cylinder")

	a := 0.15
	ew := []r3.Vec{{X: math.Sin(a), Z: math.Cos(a)}}
	ns := []r3.Vec{{Y: math.Sin(a), Z: math.Cos(a)}}

	yEW, err := ResponseFor(c, PolarizationY, ew)
	require.NoError(t, err)
	xNS, err := ResponseFor(c, PolarizationX, ns)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(yEW, xNS, 1e-15))

	yNS, err := ResponseFor(c, PolarizationY, ns)
	require.NoError(t, err)
	xEW, err := ResponseFor(c, PolarizationX, ew)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(yNS, xEW, 1e-15))

	_, err = ResponseFor(c, Polarization("z"), ew)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"two components", func() error {
			_, err := ParseDirections([][]float64{{0, 0, 1}, {0, 1}})
			return err
		}},
		{"four components", func() error {
			_, err := ParseDirections([][]float64{{0, 0, 1, 0}})
			return err
		}},
		{"no directions", func() error {
			_, err := ParseDirections(nil)
			return err
		}},
		{"matrix columns", func() error {
			_, err := DirectionsFromMatrix(mat.NewDense(2, 2, []float64{0, 1, 1, 0}))
			return err
		}},
		{"empty response", func() error {
			d, err := NewDish(testFreqs)
			if err != nil {
				return err
			}
			_, err = d.Response(nil)
			return err
		}},
		{"evaluate", func() error {
			c, err := NewCylinder(testFreqs)
			if err != nil {
				return err
			}
			_, err = Evaluate(c, [][]float64{{1, 2}})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), ErrShapeMismatch)
		})
	}
}

func TestDirectionsFromMatrix(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{0, 0, 1, 1, 0, 0})
	dirs, err := DirectionsFromMatrix(m)
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{Z: 1}, {X: 1}}, dirs)
}

func TestUnnormalizedDirectionsAreNotRescaled(t *testing.T) {
	c, err := NewCylinder(testFreqs)
	require.NoError(t, err, "Failed to create cylinder")

	resp, err := c.Response([]r3.Vec{{Z: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, resp.At(0, 0))
}
