package timestream

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

// Site is the location of the array
type Site struct {
	Latitude  *float64 `json:"latitude,omitempty"`  // Geodetic latitude in degrees
	Longitude *float64 `json:"longitude,omitempty"` // Geodetic longitude in degrees
	Altitude  *float64 `json:"altitude,omitempty"`  // Altitude above sea level in meters
}

// Observation represents a single observing run of the array.
// Every baseline of an observation shares its time and frequency axes.
type Observation struct {
	ID              int64         `json:"ID"`                      // Unique identifier for the observation
	Name            string        `json:"name"`                    // Human-readable name, e.g. the target
	StartTime       time.Time     `json:"startTime"`               // When the observation began
	IntegrationTime time.Duration `json:"integrationTime"`         // Time between consecutive samples
	Frequencies     []float64     `json:"frequencies"`             // Channel centre frequencies in MHz
	Site            Site          `json:"site"`                    // Where the observation was made
	Config          *string       `json:"config,string,omitempty"` // Optional instrument configuration in JSON format
}

// Baseline identifies the correlation of two feeds in one polarization
type Baseline struct {
	Feed1 int    `json:"feed1"`
	Feed2 int    `json:"feed2"`
	Pol   string `json:"pol"` // Polarization product, e.g. "xx" or "xy"
}

func (b Baseline) String() string {
	return fmt.Sprintf("%d-%d %s", b.Feed1, b.Feed2, b.Pol)
}

// IsAuto reports whether both feeds are the same
func (b Baseline) IsAuto() bool {
	return b.Feed1 == b.Feed2
}

// Ordered returns the baseline with the lower feed first. swapped is true
// when the feeds were exchanged, in which case the visibilities of the
// baseline must be conjugated.
func (b Baseline) Ordered() (ordered Baseline, swapped bool) {
	if b.Feed1 > b.Feed2 {
		return Baseline{Feed1: b.Feed2, Feed2: b.Feed1, Pol: swapPol(b.Pol)}, true
	}
	return b, false
}

// swapPol exchanges the feed roles of a cross-polarization product
func swapPol(pol string) string {
	if len(pol) != 2 {
		return pol
	}
	return string([]byte{pol[1], pol[0]})
}

// Pair identifies a baseline by its feeds only
type Pair struct {
	Feed1 int
	Feed2 int
}

func (p Pair) String() string {
	return fmt.Sprintf("%d-%d", p.Feed1, p.Feed2)
}

// Matches reports whether b correlates the same feeds, in either order
func (p Pair) Matches(b Baseline) bool {
	return (p.Feed1 == b.Feed1 && p.Feed2 == b.Feed2) || (p.Feed1 == b.Feed2 && p.Feed2 == b.Feed1)
}

// ParsePairs parses a comma separated list of feed pairs, e.g. "1-2,1-3".
// The empty string and "all" parse to no pairs.
func ParsePairs(s string) ([]Pair, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}

	var pairs []Pair
	for _, item := range strings.Split(s, ",") {
		feeds := strings.Split(strings.TrimSpace(item), "-")
		if len(feeds) != 2 {
			return nil, fmt.Errorf("invalid feed pair '%s', want <feed>-<feed>", item)
		}
		f1, err := strconv.Atoi(strings.TrimSpace(feeds[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid feed pair '%s': %w", item, err)
		}
		f2, err := strconv.Atoi(strings.TrimSpace(feeds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid feed pair '%s': %w", item, err)
		}
		pairs = append(pairs, Pair{Feed1: f1, Feed2: f2})
	}
	return pairs, nil
}

// BaselineFilter selects baselines by feed pair and polarization.
// Empty lists place no restriction, exclusions always apply.
type BaselineFilter struct {
	Include []Pair
	Exclude []Pair
	Pols    []string
}

// Allow reports whether b passes the filter
func (f BaselineFilter) Allow(b Baseline) bool {
	if len(f.Pols) > 0 && !slices.Contains(f.Pols, b.Pol) {
		return false
	}
	if len(f.Include) > 0 && !slices.ContainsFunc(f.Include, func(p Pair) bool { return p.Matches(b) }) {
		return false
	}
	return !slices.ContainsFunc(f.Exclude, func(p Pair) bool { return p.Matches(b) })
}

// Select returns the baselines that pass the filter, in their original order
func (f BaselineFilter) Select(baselines []Baseline) []Baseline {
	var out []Baseline
	for _, b := range baselines {
		if f.Allow(b) {
			out = append(out, b)
		}
	}
	return out
}

// Record is one integration of a baseline across all frequency channels
type Record struct {
	Index     int          // Position on the observation time axis
	Timestamp time.Time    // Start of the integration
	Vis       []complex128 // One visibility per channel
	Flags     []bool       // One RFI flag per channel, nil if nothing is flagged
}

// BaselineData is the time-frequency block of a single baseline
type BaselineData struct {
	Observation *Observation
	Baseline    Baseline
	Times       []time.Time
	Freqs       []float64              // Channel centre frequencies in MHz
	NoiseOn     []bool                 // Noise source state per time sample, nil if never recorded
	Vis         *vis.Array[complex128] // [time, freq]
	Mask        *vis.Mask              // [time, freq]
}

// Order returns the data of the ordered baseline, conjugating the
// visibilities when the feeds had to be swapped.
func (d *BaselineData) Order() *BaselineData {
	ordered, swapped := d.Baseline.Ordered()
	if !swapped {
		return d
	}

	out := *d
	out.Baseline = ordered
	out.Vis = vis.Conj(d.Vis)
	return &out
}
