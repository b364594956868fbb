package app

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

func parseTestConfig(args ...string) (*Config, error) {
	fs := flag.NewFlagSet("waterfall", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseConfig(fs, args)
}

func TestParseConfig_Defaults(t *testing.T) {
	c, err := parseTestConfig("-db", "obs.db", "-o", "wf/out")
	require.NoError(t, err)

	assert.Equal(t, "obs.db", c.DBPath)
	assert.Equal(t, int64(1), c.ObservationID)
	assert.Equal(t, "wf/out", c.OutputPrefix)
	assert.Equal(t, ImageFormat(ImagePNG), c.Format)
	assert.Equal(t, vis.ModeMask, c.Mode)
	assert.Equal(t, vis.PartAbs, c.Part)
	assert.Equal(t, ClassicTheme, c.Theme)
	assert.Equal(t, time.UTC, c.TimeZone)
	assert.Nil(t, c.Rescale)
	assert.Nil(t, c.MinFrequency)
	assert.Nil(t, c.MinTimestamp)
	assert.Empty(t, c.Filter.Include)
	assert.Empty(t, c.Filter.Pols)
	assert.Equal(t, defaultBandpassKernel, c.BandpassKernel)
	assert.GreaterOrEqual(t, c.Workers, 1)
}

func TestParseConfig_Options(t *testing.T) {
	c, err := parseTestConfig(
		"-db", "obs.db", "-obs", "3", "-o", "out", "-f", "JPEG",
		"-mode", "noise", "-interpolate", "-part", "phase",
		"-bl-incl", "1-2,2-3", "-bl-excl", "3-3", "-pols", "XX, yy",
		"-bad-times", "0:10,50:60", "-bad-freqs", "5:6", "-trim",
		"-min-freq", "700", "-max-freq", "750",
		"-start", "2024-03-01 12:00:00", "-end", "2024-03-01 13:00:00",
		"-theme", "thermal", "-flag-color", "#ff0000", "-rescale", "3",
		"-min-value", "0", "-fits", "-plots", "-workers", "2",
	)
	require.NoError(t, err)

	assert.Equal(t, int64(3), c.ObservationID)
	assert.Equal(t, ImageFormat(ImageJPEG), c.Format)
	assert.Equal(t, vis.ModeNoiseFlag, c.Mode)
	assert.True(t, c.Interpolate)
	assert.Equal(t, vis.PartPhase, c.Part)
	assert.Equal(t, []timestream.Pair{{Feed1: 1, Feed2: 2}, {Feed1: 2, Feed2: 3}}, c.Filter.Include)
	assert.Equal(t, []timestream.Pair{{Feed1: 3, Feed2: 3}}, c.Filter.Exclude)
	assert.Equal(t, []string{"xx", "yy"}, c.Filter.Pols)
	assert.Equal(t, []vis.IndexRange{{Start: 0, End: 10}, {Start: 50, End: 60}}, c.BadTimes)
	assert.Equal(t, []vis.IndexRange{{Start: 5, End: 6}}, c.BadFreqs)
	assert.True(t, c.Trim)

	require.NotNil(t, c.MinFrequency)
	require.NotNil(t, c.MaxFrequency)
	assert.Equal(t, 700.0, *c.MinFrequency)
	assert.Equal(t, 750.0, *c.MaxFrequency)

	require.NotNil(t, c.MinTimestamp)
	require.NotNil(t, c.MaxTimestamp)
	assert.True(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Equal(*c.MinTimestamp))
	assert.Equal(t, time.Hour, c.MaxTimestamp.Sub(*c.MinTimestamp))

	assert.Equal(t, ThermalTheme, c.Theme)
	r, g, b := c.FlagColor.RGB255()
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
	require.NotNil(t, c.Rescale)
	assert.Equal(t, 3.0, *c.Rescale)
	require.NotNil(t, c.MinValue)
	assert.Nil(t, c.MaxValue)
	assert.True(t, c.FITS)
	assert.True(t, c.Plots)
	assert.Equal(t, 2, c.Workers)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no db", []string{"-o", "out"}},
		{"no output", []string{"-db", "obs.db"}},
		{"observation", []string{"-db", "obs.db", "-o", "out", "-obs", "0"}},
		{"format", []string{"-db", "obs.db", "-o", "out", "-f", "gif"}},
		{"mode", []string{"-db", "obs.db", "-o", "out", "-mode", "smooth"}},
		{"interpolate without noise", []string{"-db", "obs.db", "-o", "out", "-interpolate"}},
		{"part", []string{"-db", "obs.db", "-o", "out", "-part", "power"}},
		{"theme", []string{"-db", "obs.db", "-o", "out", "-theme", "neon"}},
		{"flag color", []string{"-db", "obs.db", "-o", "out", "-flag-color", "red"}},
		{"rescale", []string{"-db", "obs.db", "-o", "out", "-rescale", "0"}},
		{"value range", []string{"-db", "obs.db", "-o", "out", "-min-value", "2", "-max-value", "1"}},
		{"frequency range", []string{"-db", "obs.db", "-o", "out", "-min-freq", "800", "-max-freq", "700"}},
		{"time", []string{"-db", "obs.db", "-o", "out", "-start", "yesterday"}},
		{"time range", []string{"-db", "obs.db", "-o", "out", "-start", "2024-03-02 00:00:00", "-end", "2024-03-01 00:00:00"}},
		{"time zone", []string{"-db", "obs.db", "-o", "out", "-tz", "Mars/Olympus"}},
		{"pairs", []string{"-db", "obs.db", "-o", "out", "-bl-incl", "1_2"}},
		{"ranges", []string{"-db", "obs.db", "-o", "out", "-bad-times", "10:5"}},
		{"kernel", []string{"-db", "obs.db", "-o", "out", "-bandpass-kernel", "4"}},
		{"workers", []string{"-db", "obs.db", "-o", "out", "-workers", "0"}},
		{"scale", []string{"-db", "obs.db", "-o", "out", "-scale", "0"}},
		{"percentile", []string{"-db", "obs.db", "-o", "out", "-percentile", "50"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTestConfig(tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseConfig_InterpolateError(t *testing.T) {
	_, err := parseTestConfig("-db", "obs.db", "-o", "out", "-mode", "mask", "-interpolate")
	assert.ErrorIs(t, err, vis.ErrInvalidMode)
}

func TestParseRanges(t *testing.T) {
	ranges, err := parseRanges(" 1:3 , 7:8")
	require.NoError(t, err)
	assert.Equal(t, []vis.IndexRange{{Start: 1, End: 3}, {Start: 7, End: 8}}, ranges)

	ranges, err = parseRanges("")
	require.NoError(t, err)
	assert.Nil(t, ranges)

	for _, s := range []string{"1", "a:2", "1:b", "-1:2", "3:3"} {
		_, err = parseRanges(s)
		assert.Error(t, err, s)
	}
}
