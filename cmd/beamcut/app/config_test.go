package app

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
)

func parseTestConfig(args ...string) (*Config, error) {
	fs := flag.NewFlagSet("beamcut", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseConfig(fs, args)
}

func TestParseConfig_Defaults(t *testing.T) {
	c, err := parseTestConfig()
	require.NoError(t, err)

	assert.Equal(t, beam.Config{Type: beam.TypeCylinder}, c.Beam)
	assert.Equal(t, 750.0, c.Frequency)
	assert.Equal(t, 90.0, c.Span)
	assert.Equal(t, defaultPoints, c.Points)
	assert.Equal(t, defaultOutput, c.Output)
	assert.False(t, c.NoFit)
}

func TestParseConfig_Flags(t *testing.T) {
	c, err := parseTestConfig("-type", "DISH", "-diameter", "9", "-freq", "600", "-span", "30", "-points", "501", "-o", "dish.png", "-no-fit")
	require.NoError(t, err)

	assert.Equal(t, beam.TypeDish, c.Beam.Type)
	assert.Equal(t, 9.0, c.Beam.Diameter)
	assert.Equal(t, 600.0, c.Frequency)
	assert.Equal(t, 30.0, c.Span)
	assert.Equal(t, 501, c.Points)
	assert.Equal(t, "dish.png", c.Output)
	assert.True(t, c.NoFit)
}

func TestParseConfig_BeamFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beam.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: cylinder\nwidth: 12\nlength: 30\n"), 0o600))

	c, err := parseTestConfig("-c", path, "-length", "50")
	require.NoError(t, err)
	assert.Equal(t, beam.Config{Type: beam.TypeCylinder, Width: 12, Length: 50}, c.Beam)

	require.NoError(t, os.WriteFile(path, []byte("type: cylinder\nradius: 12\n"), 0o600))
	_, err = parseTestConfig("-c", path)
	assert.Error(t, err, "unknown fields are rejected")
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"type", []string{"-type", "phased"}},
		{"diameter", []string{"-type", "dish", "-diameter", "-1"}},
		{"width", []string{"-width", "-2"}},
		{"frequency", []string{"-freq", "0"}},
		{"span", []string{"-span", "120"}},
		{"points", []string{"-points", "2"}},
		{"output", []string{"-o", ""}},
		{"beam file", []string{"-c", "missing.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTestConfig(tt.args...)
			assert.Error(t, err)
		})
	}
}
