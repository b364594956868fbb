package app

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 8.0
	tickMarkHeight = 5
	pixelsPerLabel = 150.00
	colorBarWidth  = 20
	colorBarMargin = 10

	hzPerMHz = 1e6
)

type annotatorConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	PixelScale     int
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, wf *WaterfallData, colorMap *ColorMapper) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, *WaterfallData, *ColorMapper) error
	}{
		{"drawing frequency scale", a.drawFrequencyScale},
		{"drawing time scale", a.drawTimeScale},
		{"drawing info bar", a.drawInfoBar},
		{"drawing color bar", a.drawColorBar},
	}
	for _, op := range ops {
		if err := op.fn(img, wf, colorMap); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, wf *WaterfallData, _ *ColorMapper) error {
	width := wf.Width * a.config.PixelScale
	span := wf.FrequencyMax - wf.FrequencyMin
	textY := a.config.Borders.Top - a.fontHeight()/2

	freqs := []float64{wf.FrequencyMin}
	if span > 0 {
		step := calculateNiceFrequencyStep(span, width)
		freqs = freqs[:0]
		for freq := math.Ceil(wf.FrequencyMin/step) * step; freq <= wf.FrequencyMax; freq += step {
			freqs = append(freqs, freq)
		}
	}

	for _, freq := range freqs {
		x := a.config.Borders.Left
		if span > 0 {
			xRatio := (freq - wf.FrequencyMin) / span
			x += int(xRatio * float64(width-a.config.PixelScale))
		}
		x += a.config.PixelScale / 2

		for y := a.config.Borders.Top - tickMarkHeight; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatFrequency(freq)
		labelWidth := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(labelWidth.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, wf *WaterfallData, _ *ColorMapper) error {
	metrics := a.fontFace.Metrics()
	fontHeight := a.fontHeight()

	rowDuration := wf.RowDuration()
	times := []time.Time{wf.TimestampStart}
	if rowDuration > 0 {
		step := calculateNiceTimeStep(wf.TimestampEnd.Sub(wf.TimestampStart))
		times = times[:0]
		for t := wf.TimestampStart.Truncate(step); !t.After(wf.TimestampEnd); t = t.Add(step) {
			if !t.Before(wf.TimestampStart) {
				times = append(times, t)
			}
		}
	}

	for _, t := range times {
		row := 0.0
		if rowDuration > 0 {
			row = float64(t.Sub(wf.TimestampStart)) / float64(rowDuration)
		}
		imgY := a.config.Borders.Top + int(row*float64(a.config.PixelScale)) + a.config.PixelScale/2

		for x := a.config.Borders.Left - tickMarkHeight; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		// Center text vertically relative to the tick mark position
		textY := imgY + fontHeight/2 - metrics.Descent.Round()
		label := t.In(a.config.Location).Format(a.config.TimeFormat)
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, wf *WaterfallData, _ *ColorMapper) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Baseline %s (%s); ", wf.Baseline, wf.Part))
	sb.WriteString(formatFrequencyRange(wf.FrequencyMin, wf.FrequencyMax))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Time: %s - %s",
		wf.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		wf.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("1px = %s x %s",
		formatFrequency(wf.ChannelWidth()/float64(a.config.PixelScale)),
		wf.RowDuration()/time.Duration(a.config.PixelScale)))

	metrics := a.fontFace.Metrics()
	fontHeight := a.fontHeight()

	// Center text vertically in bottom border
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// drawColorBar draws the gradient with its bounds in the right border
func (a *annotator) drawColorBar(img *image.RGBA, wf *WaterfallData, colorMap *ColorMapper) error {
	height := wf.Height * a.config.PixelScale
	left := a.config.Borders.Left + wf.Width*a.config.PixelScale + colorBarMargin
	top := a.config.Borders.Top

	bounds := wf.Bounds.widen()
	for y := 0; y < height; y++ {
		// highest value at the top
		ratio := 1.0
		if height > 1 {
			ratio = 1 - float64(y)/float64(height-1)
		}
		c := colorMap.GetColor(bounds.Min+ratio*(bounds.Max-bounds.Min), true)
		for x := left; x < left+colorBarWidth; x++ {
			img.Set(x, top+y, c)
		}
	}

	labels := []struct {
		value float64
		y     int
	}{
		{bounds.Max, top + a.fontHeight()/2},
		{bounds.Min, top + height},
	}
	for _, l := range labels {
		pt := freetype.Pt(left+colorBarWidth+3, l.y)
		if _, err := a.context.DrawString(formatValue(l.value), pt); err != nil {
			return fmt.Errorf("drawing color bar label: %w", err)
		}
	}
	return nil
}

// Helper functions

// calculateNiceFrequencyStep picks a label step in MHz
func calculateNiceFrequencyStep(span float64, width int) float64 {
	steps := []float64{
		0.001, // 1 kHz
		0.01,  // 10 kHz
		0.1,   // 100 kHz
		0.5,   // 500 kHz
		1,     // 1 MHz
		5,     // 5 MHz
		10,    // 10 MHz
		50,    // 50 MHz
		100,   // 100 MHz
		500,   // 500 MHz
		1000,  // 1 GHz
	}

	desiredSteps := max(float64(width)/pixelsPerLabel, 1)
	targetStep := span / desiredSteps

	for _, step := range steps {
		if step >= targetStep {
			return step
		}
	}

	// If we can't find a suitable step, show both ends of the band
	return span
}

func formatFrequency(freqMHz float64) string {
	value, prefix := humanize.ComputeSI(freqMHz * hzPerMHz)
	return fmt.Sprintf("%.2f %sHz", value, prefix)
}

func formatFrequencyRange(minFreq, maxFreq float64) string {
	return fmt.Sprintf("Freq: %s - %s", formatFrequency(minFreq), formatFrequency(maxFreq))
}

func formatValue(v float64) string {
	return humanize.FormatFloat("#,###.###", v)
}

func calculateNiceTimeStep(duration time.Duration) time.Duration {
	roughStep := duration.Seconds() / 8 // Aim for about 8 time labels

	// Nice time intervals in seconds
	niceIntervals := []float64{
		1,     // 1 second
		10,    // 10 seconds
		30,    // 30 seconds
		60,    // 1 minute
		300,   // 5 minutes
		600,   // 10 minutes
		900,   // 15 minutes
		1800,  // 30 minutes
		3600,  // 1 hour
		7200,  // 2 hours
		14400, // 4 hours
	}

	for _, interval := range niceIntervals {
		if roughStep <= interval {
			return time.Duration(interval) * time.Second
		}
	}

	return time.Hour * 6 // Default for very long durations
}
