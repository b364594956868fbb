package app

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
	"github.com/roman-kulish/radio-interferometer/internal/timestream"
)

func newTestSimulator(t *testing.T, c *Config) (*Simulator, beam.Model) {
	t.Helper()

	require.NoError(t, c.Validate())
	model, err := beam.New(c.Array.Beam, c.Observation.Frequencies())
	if err != nil {
		t.Fatalf("Failed to create beam: %v", err)
	}
	sim, err := NewSimulator(c, model, beam.DefaultConstants())
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}
	return sim, model
}

func TestNoiseSourceConfig_On(t *testing.T) {
	ns := NoiseSourceConfig{Period: 5, Width: 2, Offset: 1}

	var on []int
	for i := 0; i < 12; i++ {
		if ns.On(i) {
			on = append(on, i)
		}
	}
	assert.Equal(t, []int{1, 2, 6, 7, 11}, on)
	assert.False(t, NoiseSourceConfig{}.On(0))
}

func TestSourceDirection(t *testing.T) {
	lat := 45 * math.Pi / 180

	// a source at the latitude declination transits at the zenith
	zenith := SourceDirection(lat, lat, 0)
	assert.InDelta(t, 0, zenith.X, 1e-12)
	assert.InDelta(t, 0, zenith.Y, 1e-12)
	assert.InDelta(t, 1, zenith.Z, 1e-12)

	// west of the meridian after transit
	later := SourceDirection(lat, lat, 0.1)
	assert.Less(t, later.X, 0.0)
	assert.InDelta(t, 1, r3.Norm(later), 1e-12)
}

func TestSimulator_Baselines(t *testing.T) {
	c := validConfig()
	sim, _ := newTestSimulator(t, c)
	assert.Equal(t, []timestream.Baseline{{Feed1: 1, Feed2: 2, Pol: "xx"}, {Feed1: 1, Feed2: 2, Pol: "yy"}}, sim.Baselines())

	c = validConfig()
	c.Array.AutoCorrelations = true
	c.Array.Pols = []string{PolXY}
	c.Array.Feeds[0].ID, c.Array.Feeds[1].ID = 5, 3
	sim, _ = newTestSimulator(t, c)
	assert.Equal(t, []timestream.Baseline{{Feed1: 5, Feed2: 5, Pol: "xy"}, {Feed1: 3, Feed2: 5, Pol: "yx"}, {Feed1: 3, Feed2: 3, Pol: "xy"}}, sim.Baselines())
}

func TestSimulator_NoiseFreeVisibility(t *testing.T) {
	c := validConfig()
	c.Noise.NoiseSource = NoiseSourceConfig{}
	sim, model := newTestSimulator(t, c)

	records, err := sim.Simulate(timestream.Baseline{Feed1: 1, Feed2: 2, Pol: PolXX}, 0)
	require.NoError(t, err)
	require.Len(t, records, c.Observation.NumTimes)

	constants := beam.DefaultConstants()
	b := r3.Vec{X: 10}
	for _, ti := range []int{0, 7, 19} {
		rec := records[ti]
		assert.Equal(t, ti, rec.Index)
		assert.True(t, sim.Times()[ti].Equal(rec.Timestamp))

		resp, err := model.Response([]r3.Vec{sim.dirs[ti]})
		require.NoError(t, err)
		for f, freq := range sim.Frequencies() {
			phase := -2 * math.Pi * r3.Dot(b, sim.dirs[ti]) / constants.Wavelength(freq)
			want := complex(c.Source.Flux*resp.At(f, 0), 0) * cmplx.Exp(complex(0, phase))
			assert.InDelta(t, real(want), real(rec.Vis[f]), 1e-9)
			assert.InDelta(t, imag(want), imag(rec.Vis[f]), 1e-9)
			assert.False(t, rec.Flags[f])
		}
	}
}

func TestSimulator_CrossPolAndNoiseSource(t *testing.T) {
	c := validConfig()
	sim, _ := newTestSimulator(t, c)

	records, err := sim.Simulate(timestream.Baseline{Feed1: 1, Feed2: 2, Pol: PolXY}, 0)
	require.NoError(t, err)

	for ti, rec := range records {
		want := complex(0, 0)
		if ti%5 == 0 {
			want = complex(c.Noise.NoiseSource.Amplitude, 0)
		}
		for _, v := range rec.Vis {
			assert.Equal(t, want, v, "t=%d", ti)
		}
	}
	assert.Equal(t, []bool{true, false, false, false, false}, sim.NoiseOn()[:5])
}

func TestSimulator_Noise(t *testing.T) {
	c := validConfig()
	c.Noise.Sigma = 1
	c.Array.AutoCorrelations = true
	c.Source.SystemTemperature = 50
	sim, _ := newTestSimulator(t, c)

	bl := timestream.Baseline{Feed1: 1, Feed2: 2, Pol: PolXX}
	first, err := sim.Simulate(bl, 3)
	require.NoError(t, err)
	again, err := sim.Simulate(bl, 3)
	require.NoError(t, err)
	other, err := sim.Simulate(bl, 4)
	require.NoError(t, err)

	assert.Equal(t, first, again, "the same stream must give the same noise")
	assert.NotEqual(t, first[0].Vis, other[0].Vis)

	auto, err := sim.Simulate(timestream.Baseline{Feed1: 1, Feed2: 1, Pol: PolYY}, 0)
	require.NoError(t, err)
	for _, rec := range auto {
		for _, v := range rec.Vis {
			assert.Zero(t, imag(v))
			assert.Greater(t, real(v), 30.0)
		}
	}
}

func TestSimulator_RFI(t *testing.T) {
	c := validConfig()
	c.Noise.RFIProbability = 1
	c.Noise.RFIAmplitude = 100
	sim, _ := newTestSimulator(t, c)

	records, err := sim.Simulate(timestream.Baseline{Feed1: 1, Feed2: 2, Pol: PolYY}, 0)
	require.NoError(t, err)
	for _, rec := range records {
		for _, flagged := range rec.Flags {
			assert.True(t, flagged)
		}
	}
}

func TestSimulator_Errors(t *testing.T) {
	c := validConfig()
	sim, _ := newTestSimulator(t, c)

	_, err := sim.Simulate(timestream.Baseline{Feed1: 1, Feed2: 9, Pol: PolXX}, 0)
	assert.Error(t, err)

	_, err = sim.Simulate(timestream.Baseline{Feed1: 1, Feed2: 2, Pol: "x"}, 0)
	assert.Error(t, err)

	model, err := beam.NewDish([]float64{700})
	require.NoError(t, err)
	_, err = NewSimulator(c, model, beam.DefaultConstants())
	assert.Error(t, err, "beam and observation frequencies must agree")
}
