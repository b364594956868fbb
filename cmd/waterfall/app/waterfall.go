package app

import (
	"fmt"
	"time"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

// WaterfallData is the conditioned, real-valued time-frequency block of a
// baseline ready for display. Rows are time samples, columns are channels.
type WaterfallData struct {
	Baseline                     timestream.Baseline
	Part                         vis.Part
	Width, Height                int
	FrequencyMin, FrequencyMax   float64 // MHz
	TimestampStart, TimestampEnd time.Time
	Times                        []time.Time
	Freqs                        []float64
	Bounds                       ValueBounds
	Values                       *vis.Masked[float64] // [time, freq]
}

// NewWaterfallData wraps display values with the axes of the baseline block
func NewWaterfallData(data *timestream.BaselineData, part vis.Part, values *vis.Masked[float64]) (*WaterfallData, error) {
	shape := values.Shape()
	if shape.Time != len(data.Times) || shape.Freq != len(data.Freqs) {
		return nil, fmt.Errorf("%w: values %s, %d times, %d freqs", vis.ErrShapeMismatch, shape, len(data.Times), len(data.Freqs))
	}

	w := &WaterfallData{
		Baseline:       data.Baseline,
		Part:           part,
		Width:          shape.Freq,
		Height:         shape.Time,
		FrequencyMin:   data.Freqs[0],
		FrequencyMax:   data.Freqs[0],
		TimestampStart: data.Times[0],
		TimestampEnd:   data.Times[len(data.Times)-1],
		Times:          data.Times,
		Freqs:          data.Freqs,
		Values:         values,
	}
	for _, f := range data.Freqs {
		w.FrequencyMin = min(w.FrequencyMin, f)
		w.FrequencyMax = max(w.FrequencyMax, f)
	}
	return w, nil
}

// RowDuration returns the time spanned by a single row
func (w *WaterfallData) RowDuration() time.Duration {
	if w.Height < 2 {
		return 0
	}
	return w.TimestampEnd.Sub(w.TimestampStart) / time.Duration(w.Height-1)
}

// ChannelWidth returns the frequency spanned by a single column in MHz
func (w *WaterfallData) ChannelWidth() float64 {
	if w.Width < 2 {
		return 0
	}
	return (w.FrequencyMax - w.FrequencyMin) / float64(w.Width-1)
}
