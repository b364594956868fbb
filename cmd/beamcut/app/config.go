package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
)

const (
	defaultFrequency = 750.0 // MHz
	defaultSpan      = 90.0  // degrees
	defaultPoints    = 2001
	defaultOutput    = "beamcut.png"

	minPoints = 3
)

type Config struct {
	Beam      beam.Config
	Frequency float64 // MHz
	Span      float64 // Largest zenith angle of the cuts in degrees
	Points    int     // Samples per cut
	Output    string
	NoFit     bool
	Verbose   bool
}

func NewConfig() *Config {
	return &Config{
		Beam:      beam.Config{Type: beam.TypeCylinder},
		Frequency: defaultFrequency,
		Span:      defaultSpan,
		Points:    defaultPoints,
		Output:    defaultOutput,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		flag.Usage()
		return nil, err
	}
	return c, nil
}

func parseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var beamPath, beamType string
	var diameter, width, length float64
	fs.StringVar(&beamPath, "c", "", "Path to a YAML beam configuration, flags override its values")
	fs.StringVar(&beamType, "type", string(beam.TypeCylinder), "Beam type. [dish, cylinder]")
	fs.Float64Var(&diameter, "diameter", 0, "Dish diameter in meters (default 6)")
	fs.Float64Var(&width, "width", 0, "Cylinder width in meters (default 15)")
	fs.Float64Var(&length, "length", 0, "Cylinder length in meters (default 40)")
	fs.Float64Var(&c.Frequency, "freq", c.Frequency, "Frequency in MHz")
	fs.Float64Var(&c.Span, "span", c.Span, "Largest zenith angle of the cuts in degrees")
	fs.IntVar(&c.Points, "points", c.Points, "Number of samples per cut")
	fs.StringVar(&c.Output, "o", c.Output, "Output PNG file")
	fs.BoolVar(&c.NoFit, "no-fit", false, "Skip the Gaussian fit of the main lobe")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if beamPath != "" {
		cfg, err := loadBeamConfig(beamPath)
		if err != nil {
			return nil, err
		}
		c.Beam = *cfg
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "type":
			c.Beam.Type = beam.Type(beamType)
		case "diameter":
			c.Beam.Diameter = diameter
		case "width":
			c.Beam.Width = width
		case "length":
			c.Beam.Length = length
		}
	})

	if err := c.Beam.Validate(); err != nil {
		return nil, err
	} else if c.Frequency <= 0 {
		return nil, fmt.Errorf("invalid frequency: %v", c.Frequency)
	} else if c.Span <= 0 || c.Span > 90 {
		return nil, fmt.Errorf("span must be between 0 and 90 degrees: %v", c.Span)
	} else if c.Points < minPoints {
		return nil, fmt.Errorf("need at least %d points per cut: %d", minPoints, c.Points)
	} else if c.Output == "" {
		return nil, errors.New("output file is required")
	}

	return c, nil
}

// loadBeamConfig reads a beam configuration, as found under array.beam of
// the simulate configuration
func loadBeamConfig(path string) (*beam.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening beam configuration: %w", err)
	}
	defer f.Close()

	var cfg beam.Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err = decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding beam configuration: %w", err)
	}
	return &cfg, nil
}
