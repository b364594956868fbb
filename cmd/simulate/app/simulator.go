package app

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
	"github.com/roman-kulish/radio-interferometer/internal/timestream"
)

// siderealDay is the Earth rotation period in seconds
const siderealDay = 86164.0905

// Simulator produces the visibilities of a point source drifting through
// the beam of every baseline of the array.
type Simulator struct {
	config    *Config
	constants beam.Constants

	freqs   []float64
	times   []time.Time
	dirs    []r3.Vec
	noiseOn []bool
	feeds   map[int]r3.Vec

	// beam response per feed polarization, [freq, time]
	responses map[beam.Polarization]*mat.Dense
}

// NewSimulator evaluates the beam of model along the source track.
// model must be built for the frequencies of the observation.
func NewSimulator(config *Config, model beam.Model, constants beam.Constants) (*Simulator, error) {
	o := &config.Observation
	s := &Simulator{
		config:    config,
		constants: constants,
		freqs:     model.Frequencies(),
		times:     make([]time.Time, o.NumTimes),
		dirs:      make([]r3.Vec, o.NumTimes),
		noiseOn:   make([]bool, o.NumTimes),
		feeds:     make(map[int]r3.Vec, len(config.Array.Feeds)),
		responses: make(map[beam.Polarization]*mat.Dense, 2),
	}
	if len(s.freqs) != o.NumFreqs {
		return nil, fmt.Errorf("beam has %d frequencies, observation has %d", len(s.freqs), o.NumFreqs)
	}

	var lat float64
	if o.Latitude != nil {
		lat = *o.Latitude
	}
	latitude := lat * math.Pi / 180
	declination := config.Source.Declination * math.Pi / 180
	transit := time.Duration(config.Source.Transit)
	step := time.Duration(o.IntegrationTime)

	for t := range s.times {
		offset := time.Duration(t) * step
		s.times[t] = o.Start.Add(offset)

		hourAngle := 2 * math.Pi * (offset - transit).Seconds() / siderealDay
		s.dirs[t] = SourceDirection(latitude, declination, hourAngle)
		s.noiseOn[t] = config.Noise.NoiseSource.On(t)
	}

	for _, feed := range config.Array.Feeds {
		s.feeds[feed.ID] = r3.Vec{X: feed.Position[0], Y: feed.Position[1], Z: feed.Position[2]}
	}

	for _, pol := range []beam.Polarization{beam.PolarizationX, beam.PolarizationY} {
		resp, err := beam.ResponseFor(model, pol, s.dirs)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s beam: %w", pol, err)
		}
		s.responses[pol] = resp
	}
	return s, nil
}

// On reports whether the noise source is on at time sample t
func (c NoiseSourceConfig) On(t int) bool {
	if c.Period <= 0 || t < c.Offset {
		return false
	}
	return (t-c.Offset)%c.Period < c.Width
}

// SourceDirection returns the east, north, up unit vector of a source at
// declination dec and hour angle ha seen from latitude lat, all in radians.
func SourceDirection(lat, dec, ha float64) r3.Vec {
	return r3.Vec{
		X: -math.Cos(dec) * math.Sin(ha),
		Y: math.Cos(lat)*math.Sin(dec) - math.Sin(lat)*math.Cos(dec)*math.Cos(ha),
		Z: math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(ha),
	}
}

func (s *Simulator) Frequencies() []float64 {
	return s.freqs
}

func (s *Simulator) Times() []time.Time {
	return s.times
}

func (s *Simulator) NoiseOn() []bool {
	return s.noiseOn
}

// Baselines lists every feed pair, lower feed first, in every configured polarization
func (s *Simulator) Baselines() []timestream.Baseline {
	var baselines []timestream.Baseline
	feeds := s.config.Array.Feeds
	for i := range feeds {
		for j := i; j < len(feeds); j++ {
			if i == j && !s.config.Array.AutoCorrelations {
				continue
			}
			for _, pol := range s.config.Array.Pols {
				bl, _ := timestream.Baseline{Feed1: feeds[i].ID, Feed2: feeds[j].ID, Pol: pol}.Ordered()
				baselines = append(baselines, bl)
			}
		}
	}
	return baselines
}

// Simulate returns all integrations of bl. The same stream always yields
// the same noise.
func (s *Simulator) Simulate(bl timestream.Baseline, stream uint64) ([]timestream.Record, error) {
	p1, ok1 := s.feeds[bl.Feed1]
	p2, ok2 := s.feeds[bl.Feed2]
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unknown feed in baseline %s", bl)
	}
	if len(bl.Pol) != 2 {
		return nil, fmt.Errorf("invalid polarization of baseline %s", bl)
	}

	// an unpolarized source does not correlate orthogonal feeds
	var resp *mat.Dense
	if bl.Pol[0] == bl.Pol[1] {
		resp = s.responses[beam.Polarization(bl.Pol[:1])]
	}

	b := r3.Sub(p2, p1)
	auto := bl.IsAuto()
	cfg := s.config

	src := rand.NewPCG(cfg.Settings.Seed, stream)
	rng := rand.New(src)
	noise := distuv.Normal{Mu: 0, Sigma: cfg.Noise.Sigma, Src: src}
	spike := distuv.Normal{Mu: 0, Sigma: cfg.Noise.RFIAmplitude, Src: src}

	records := make([]timestream.Record, len(s.times))
	for t := range records {
		rec := timestream.Record{
			Index:     t,
			Timestamp: s.times[t],
			Vis:       make([]complex128, len(s.freqs)),
			Flags:     make([]bool, len(s.freqs)),
		}

		delay := r3.Dot(b, s.dirs[t])
		for f, freq := range s.freqs {
			var v complex128
			if resp != nil {
				phase := -2 * math.Pi * delay / s.constants.Wavelength(freq)
				v = complex(cfg.Source.Flux*resp.At(f, t), 0) * cmplx.Exp(complex(0, phase))
			}
			if auto {
				v += complex(cfg.Source.SystemTemperature, 0)
			}
			if s.noiseOn[t] {
				v += complex(cfg.Noise.NoiseSource.Amplitude, 0)
			}
			if cfg.Noise.Sigma > 0 {
				v += s.sample(noise, auto)
			}
			if cfg.Noise.RFIProbability > 0 && rng.Float64() < cfg.Noise.RFIProbability {
				v += s.sample(spike, auto)
				rec.Flags[f] = true
			}
			rec.Vis[f] = v
		}
		records[t] = rec
	}
	return records, nil
}

// sample draws a complex normal value, real for autocorrelations
func (s *Simulator) sample(dist distuv.Normal, auto bool) complex128 {
	if auto {
		return complex(dist.Rand(), 0)
	}
	return complex(dist.Rand(), dist.Rand())
}
