package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	defaultFlagColor      = "#000000"
	defaultBandpassKernel = 11
	defaultPercentile     = 5.0
)

type ImageFormat string

type Config struct {
	DBPath        string
	ObservationID int64
	OutputPrefix  string
	Format        ImageFormat

	Mode        vis.Mode
	Interpolate bool
	Part        vis.Part
	Filter      timestream.BaselineFilter
	BadTimes    []vis.IndexRange
	BadFreqs    []vis.IndexRange
	Trim        bool

	MinFrequency *float64
	MaxFrequency *float64
	MinTimestamp *time.Time
	MaxTimestamp *time.Time
	TimeZone     *time.Location

	Theme          ColorTheme
	FlagColor      colorful.Color
	Rescale        *float64 // display range mean ± k·std
	MinValue       *float64
	MaxValue       *float64
	Percentile     float64 // histogram bounds, used without rescale or manual values
	HistEqual      bool
	PixelScale     int
	BandpassKernel int

	FITS          bool
	Plots         bool
	Workers       int
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

var validParts = map[string]vis.Part{
	"abs":   vis.PartAbs,
	"real":  vis.PartReal,
	"imag":  vis.PartImag,
	"phase": vis.PartPhase,
}

func NewConfig() *Config {
	return &Config{
		Format:         ImagePNG,
		Mode:           vis.ModeMask,
		Part:           vis.PartAbs,
		TimeZone:       time.UTC,
		Theme:          ClassicTheme,
		Percentile:     defaultPercentile,
		PixelScale:     1,
		BandpassKernel: defaultBandpassKernel,
		Workers:        runtime.NumCPU(),
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

	var imageFormat, mode, part, theme, flagColor, timeZone string
	var blIncl, blExcl, pols, badTimes, badFreqs string
	var minFreq, maxFreq, minValue, maxValue, rescale float64
	var minTime, maxTime string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.ObservationID, "obs", 1, "Observation ID")
	fs.StringVar(&c.OutputPrefix, "o", "", "Output file prefix, baseline and extension are appended")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&mode, "mode", c.Mode.String(), "Conditioning mode. [pass, mask, noise]")
	fs.BoolVar(&c.Interpolate, "interpolate", false, "Interpolate over noise source samples instead of blanking them (noise mode only)")
	fs.StringVar(&part, "part", "abs", "Plotted part of the visibilities. [abs, real, imag, phase]")
	fs.StringVar(&blIncl, "bl-incl", "all", "Feed pairs to plot, e.g. 1-2,1-3")
	fs.StringVar(&blExcl, "bl-excl", "", "Feed pairs to skip, e.g. 2-2")
	fs.StringVar(&pols, "pols", "", "Polarizations to plot, e.g. xx,yy (default all)")
	fs.StringVar(&badTimes, "bad-times", "", "Time index ranges to flag, e.g. 0:10,50:60")
	fs.StringVar(&badFreqs, "bad-freqs", "", "Frequency index ranges to flag, e.g. 100:120")
	fs.BoolVar(&c.Trim, "trim", false, "Cut the waterfall down to its unflagged time and frequency ranges")
	fs.Float64Var(&minFreq, "min-freq", 0, "Lowest frequency to read in MHz")
	fs.Float64Var(&maxFreq, "max-freq", 0, "Highest frequency to read in MHz")
	fs.StringVar(&minTime, "start", "", "Earliest time to read (format 2006-01-02 15:04:05)")
	fs.StringVar(&maxTime, "end", "", "Latest time to read (format 2006-01-02 15:04:05)")
	fs.StringVar(&timeZone, "tz", "UTC", "Time zone of -start, -end and the time scale")
	fs.StringVar(&theme, "theme", string(ClassicTheme), "Color theme. [classic, grayscale, jungle, thermal, marine, enhanced]")
	fs.StringVar(&flagColor, "flag-color", defaultFlagColor, "Color of flagged samples")
	fs.Float64Var(&rescale, "rescale", 0, "Display range of mean ± k standard deviations")
	fs.Float64Var(&minValue, "min-value", 0, "Define a manual minimum display value")
	fs.Float64Var(&maxValue, "max-value", 0, "Define a manual maximum display value")
	fs.Float64Var(&c.Percentile, "percentile", c.Percentile, "Clip the display range to this percentile at both ends")
	fs.BoolVar(&c.HistEqual, "hist-equal", false, "Equalize the histogram of the displayed values")
	fs.IntVar(&c.PixelScale, "scale", c.PixelScale, "Pixels per sample")
	fs.IntVar(&c.BandpassKernel, "bandpass-kernel", c.BandpassKernel, "Median filter kernel of the bandpass estimate")
	fs.BoolVar(&c.FITS, "fits", false, "Also write a FITS image per baseline")
	fs.BoolVar(&c.Plots, "plots", false, "Also plot spectra and time series")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Number of baselines processed in parallel")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disabled annotations such as time and frequency scales")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var rescaleSet bool
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-freq":
			c.MinFrequency = &minFreq
		case "max-freq":
			c.MaxFrequency = &maxFreq
		case "min-value":
			c.MinValue = &minValue
		case "max-value":
			c.MaxValue = &maxValue
		case "rescale":
			rescaleSet = true
		}
	})
	if rescaleSet {
		c.Rescale = &rescale
	}

	imageFormat = strings.ToLower(imageFormat)
	c.Format = ImageFormat(imageFormat)

	var err error
	if c.DBPath == "" {
		return nil, errors.New("db path is required")
	} else if c.ObservationID <= 0 {
		return nil, errors.New("observation id is required")
	} else if c.OutputPrefix == "" {
		return nil, errors.New("output prefix is required")
	} else if _, ok := validImageFormats[c.Format]; !ok {
		return nil, fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.Rescale != nil && *c.Rescale <= 0 {
		return nil, fmt.Errorf("invalid rescale factor: %v", *c.Rescale)
	} else if c.MinValue != nil && c.MaxValue != nil && *c.MinValue >= *c.MaxValue {
		return nil, errors.New("min value must be below max value")
	} else if c.MinFrequency != nil && c.MaxFrequency != nil && *c.MinFrequency > *c.MaxFrequency {
		return nil, errors.New("min frequency must not exceed max frequency")
	} else if c.Percentile < 0 || c.Percentile >= 50 {
		return nil, fmt.Errorf("invalid percentile: %v", c.Percentile)
	} else if c.PixelScale < 1 {
		return nil, fmt.Errorf("invalid pixel scale: %d", c.PixelScale)
	} else if c.BandpassKernel <= 0 || c.BandpassKernel%2 == 0 {
		return nil, fmt.Errorf("bandpass kernel must be a positive odd number: %d", c.BandpassKernel)
	} else if c.Workers < 1 {
		return nil, fmt.Errorf("invalid number of workers: %d", c.Workers)
	}

	if c.Mode, err = vis.ParseMode(mode); err != nil {
		return nil, err
	}
	if c.Interpolate && c.Mode != vis.ModeNoiseFlag {
		return nil, fmt.Errorf("%w: -interpolate requires -mode noise", vis.ErrInvalidMode)
	}

	var ok bool
	if c.Part, ok = validParts[strings.ToLower(part)]; !ok {
		return nil, fmt.Errorf("invalid part: %s", part)
	}

	c.Theme = ColorTheme(strings.ToLower(theme))
	if _, ok = validThemes[c.Theme]; !ok {
		return nil, fmt.Errorf("invalid color theme: %s", theme)
	}
	if c.FlagColor, err = colorful.Hex(flagColor); err != nil {
		return nil, fmt.Errorf("invalid flag color '%s': %w", flagColor, err)
	}

	if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
		return nil, fmt.Errorf("invalid time zone '%s': %w", timeZone, err)
	}
	if c.MinTimestamp, err = parseTime(minTime, c.TimeZone); err != nil {
		return nil, err
	}
	if c.MaxTimestamp, err = parseTime(maxTime, c.TimeZone); err != nil {
		return nil, err
	}
	if c.MinTimestamp != nil && c.MaxTimestamp != nil && c.MinTimestamp.After(*c.MaxTimestamp) {
		return nil, errors.New("start time must not be after end time")
	}

	if c.Filter.Include, err = timestream.ParsePairs(blIncl); err != nil {
		return nil, fmt.Errorf("invalid -bl-incl: %w", err)
	}
	if c.Filter.Exclude, err = timestream.ParsePairs(blExcl); err != nil {
		return nil, fmt.Errorf("invalid -bl-excl: %w", err)
	}
	for _, pol := range strings.Split(pols, ",") {
		if pol = strings.ToLower(strings.TrimSpace(pol)); pol != "" {
			c.Filter.Pols = append(c.Filter.Pols, pol)
		}
	}

	if c.BadTimes, err = parseRanges(badTimes); err != nil {
		return nil, fmt.Errorf("invalid -bad-times: %w", err)
	}
	if c.BadFreqs, err = parseRanges(badFreqs); err != nil {
		return nil, fmt.Errorf("invalid -bad-freqs: %w", err)
	}

	return c, nil
}

func parseTime(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateTime, s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid time '%s': %w", s, err)
	}
	return &t, nil
}

// parseRanges parses half-open index ranges such as "0:10,50:60"
func parseRanges(s string) ([]vis.IndexRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var ranges []vis.IndexRange
	for _, item := range strings.Split(s, ",") {
		bounds := strings.Split(strings.TrimSpace(item), ":")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid range '%s', want <start>:<end>", item)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid range '%s': %w", item, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid range '%s': %w", item, err)
		}
		if start < 0 || end <= start {
			return nil, fmt.Errorf("invalid range '%s'", item)
		}
		ranges = append(ranges, vis.IndexRange{Start: start, End: end})
	}
	return ranges, nil
}
