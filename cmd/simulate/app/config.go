package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
)

const (
	PolXX = "xx"
	PolXY = "xy"
	PolYX = "yx"
	PolYY = "yy"
)

var validPols = map[string]struct{}{
	PolXX: {},
	PolXY: {},
	PolYX: {},
	PolYY: {},
}

type TimeDuration time.Duration

func NewTimeDuration(d time.Duration) TimeDuration {
	return TimeDuration(d)
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings" json:"-"`
	Observation ObservationConfig `yaml:"observation" json:"observation"`
	Array       ArrayConfig       `yaml:"array" json:"array"`
	Source      SourceConfig      `yaml:"source" json:"source"`
	Noise       NoiseConfig       `yaml:"noise" json:"noise"`
	Storage     StorageConfig     `yaml:"storage" json:"-"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel"`
	Seed     uint64     `yaml:"seed"` // Seed of the noise and RFI generators
}

// ObservationConfig describes the time and frequency axes of the simulated observation
type ObservationConfig struct {
	Name            string       `yaml:"name" json:"name"`
	Start           time.Time    `yaml:"start" json:"start"`                     // default: now
	IntegrationTime TimeDuration `yaml:"integrationTime" json:"integrationTime"` // Time between samples
	NumTimes        int          `yaml:"numTimes" json:"numTimes"`
	FreqStart       float64      `yaml:"freqStart" json:"freqStart"` // First channel centre in MHz
	FreqStep        float64      `yaml:"freqStep" json:"freqStep"`   // Channel spacing in MHz, may be negative
	NumFreqs        int          `yaml:"numFreqs" json:"numFreqs"`
	Latitude        *float64     `yaml:"latitude" json:"latitude,omitempty"` // degrees
	Longitude       *float64     `yaml:"longitude" json:"longitude,omitempty"`
	Altitude        *float64     `yaml:"altitude" json:"altitude,omitempty"`
}

// Frequencies returns the channel centres in MHz
func (c *ObservationConfig) Frequencies() []float64 {
	freqs := make([]float64, c.NumFreqs)
	for i := range freqs {
		freqs[i] = c.FreqStart + float64(i)*c.FreqStep
	}
	return freqs
}

// ArrayConfig describes the feeds and their beam
type ArrayConfig struct {
	Beam             beam.Config  `yaml:"beam" json:"beam"`
	Feeds            []FeedConfig `yaml:"feeds" json:"feeds"`
	Pols             []string     `yaml:"pols" json:"pols"`                         // default: xx, yy
	AutoCorrelations bool         `yaml:"autoCorrelations" json:"autoCorrelations"` // Also simulate feed1 == feed2
}

// FeedConfig is a single feed of the array
type FeedConfig struct {
	ID       int       `yaml:"id" json:"id"`
	Position []float64 `yaml:"position" json:"position"` // East, north, up in meters
}

// SourceConfig describes the point source drifting through the beam
type SourceConfig struct {
	Flux              float64      `yaml:"flux" json:"flux"`
	Declination       float64      `yaml:"declination" json:"declination"`             // degrees
	Transit           TimeDuration `yaml:"transit" json:"transit"`                     // Offset of the meridian transit from the start
	SystemTemperature float64      `yaml:"systemTemperature" json:"systemTemperature"` // Added to autocorrelations
}

// NoiseConfig describes the receiver noise, the noise source and RFI
type NoiseConfig struct {
	Sigma          float64           `yaml:"sigma" json:"sigma"` // Standard deviation of each visibility part
	NoiseSource    NoiseSourceConfig `yaml:"noiseSource" json:"noiseSource"`
	RFIProbability float64           `yaml:"rfiProbability" json:"rfiProbability"` // Per sample
	RFIAmplitude   float64           `yaml:"rfiAmplitude" json:"rfiAmplitude"`
}

// NoiseSourceConfig switches the calibration noise source on for Width
// samples every Period samples, starting at sample Offset.
type NoiseSourceConfig struct {
	Period    int     `yaml:"period" json:"period"` // 0 disables the noise source
	Width     int     `yaml:"width" json:"width"`
	Offset    int     `yaml:"offset" json:"offset"`
	Amplitude float64 `yaml:"amplitude" json:"amplitude"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LoadConfig reads, defaults and validates the YAML configuration at path
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration: %w", err)
	}
	defer f.Close()

	var config Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err = decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	config.setDefaults()
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Observation.Start.IsZero() {
		c.Observation.Start = time.Now().UTC().Truncate(time.Second)
	}
	if len(c.Array.Pols) == 0 {
		c.Array.Pols = []string{PolXX, PolYY}
	}
	if c.Storage.MaxBatchSize <= 0 {
		c.Storage.MaxBatchSize = maxBatchSize
	}
}

func (c *Config) Validate() error {
	o := &c.Observation
	if o.Name == "" {
		return fmt.Errorf("app.Config: observation name is required")
	}
	if o.IntegrationTime <= 0 {
		return fmt.Errorf("app.Config: integration time must be positive: %s", o.IntegrationTime)
	}
	if o.NumTimes <= 0 {
		return fmt.Errorf("app.Config: number of time samples must be positive: %d", o.NumTimes)
	}
	if o.NumFreqs <= 0 {
		return fmt.Errorf("app.Config: number of channels must be positive: %d", o.NumFreqs)
	}
	if o.NumFreqs > 1 && o.FreqStep == 0 {
		return fmt.Errorf("app.Config: channel spacing must not be zero")
	}
	for _, f := range o.Frequencies() {
		if f <= 0 {
			return fmt.Errorf("app.Config: channel frequencies must be positive: %g MHz", f)
		}
	}
	if o.Latitude != nil && (*o.Latitude < -90 || *o.Latitude > 90) {
		return fmt.Errorf("app.Config: latitude must be between -90 and 90: %g", *o.Latitude)
	}

	if err := c.Array.Beam.Validate(); err != nil {
		return fmt.Errorf("app.Config: %w", err)
	}
	if len(c.Array.Feeds) == 0 {
		return fmt.Errorf("app.Config: no feeds specified")
	}
	ids := make(map[int]struct{}, len(c.Array.Feeds))
	for _, feed := range c.Array.Feeds {
		if _, ok := ids[feed.ID]; ok {
			return fmt.Errorf("app.Config: duplicate feed %d", feed.ID)
		}
		ids[feed.ID] = struct{}{}
		if len(feed.Position) != 3 {
			return fmt.Errorf("app.Config: feed %d position must be [east, north, up]", feed.ID)
		}
	}
	if len(c.Array.Feeds) == 1 && !c.Array.AutoCorrelations {
		return fmt.Errorf("app.Config: a single feed needs autoCorrelations enabled")
	}
	for i, pol := range c.Array.Pols {
		pol = strings.ToLower(pol)
		if _, ok := validPols[pol]; !ok {
			return fmt.Errorf("app.Config: invalid polarization: %s", pol)
		}
		c.Array.Pols[i] = pol
	}

	if c.Source.Flux < 0 {
		return fmt.Errorf("app.Config: source flux must not be negative: %g", c.Source.Flux)
	}
	if c.Source.Declination < -90 || c.Source.Declination > 90 {
		return fmt.Errorf("app.Config: declination must be between -90 and 90: %g", c.Source.Declination)
	}

	n := &c.Noise
	if n.Sigma < 0 {
		return fmt.Errorf("app.Config: noise sigma must not be negative: %g", n.Sigma)
	}
	if n.RFIProbability < 0 || n.RFIProbability > 1 {
		return fmt.Errorf("app.Config: RFI probability must be between 0 and 1: %g", n.RFIProbability)
	}
	if ns := n.NoiseSource; ns.Period > 0 {
		if ns.Width <= 0 || ns.Width >= ns.Period {
			return fmt.Errorf("app.Config: noise source width must be between 1 and %d: %d", ns.Period-1, ns.Width)
		}
		if ns.Offset < 0 {
			return fmt.Errorf("app.Config: noise source offset must not be negative: %d", ns.Offset)
		}
	}

	return nil
}
