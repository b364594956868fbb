package app

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 110

	defaultTimeFormat     = "15:04"
	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the waterfall
type BorderConfig struct {
	Top    int // Space for frequency scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int // Space for color bar
}

// RenderConfig holds all configuration options for waterfall visualization
type RenderConfig struct {
	// Time display configuration
	TimeFormat     string         // Format string for time display (e.g. "15:04")
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display

	// Visual configuration
	FontSize      float64        // Font size in points
	ColorTheme    ColorTheme     // Color scheme for visibility values
	ColorMapSize  int            // Number of colors in gradient (0 for default)
	FlagColor     colorful.Color // Color of flagged samples
	PixelScale    int            // Pixels per sample along both axes
	NoAnnotations bool           // Render the bare waterfall

	// Border configuration
	BorderConfig BorderConfig
}

// WaterfallRenderer handles the visualization of baseline waterfalls
type WaterfallRenderer struct {
	config RenderConfig
}

// NewWaterfallRenderer creates a new waterfall renderer with the given configuration
func NewWaterfallRenderer(config RenderConfig) (*WaterfallRenderer, error) {
	// Set defaults for zero values
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.ColorMapSize == 0 {
		config.ColorMapSize = DefaultColorMapSize
	}
	if config.PixelScale < 1 {
		config.PixelScale = 1
	}

	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{}
		return &WaterfallRenderer{config: config}, nil
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &WaterfallRenderer{config: config}, nil
}

// Render creates an image of the waterfall with annotations. Frequency
// runs left to right, time top to bottom.
func (r *WaterfallRenderer) Render(wf *WaterfallData) (*image.RGBA, error) {
	scale := r.config.PixelScale
	borders := r.config.BorderConfig

	// Create image with space for borders
	fullWidth := wf.Width*scale + borders.Left + borders.Right
	fullHeight := wf.Height*scale + borders.Top + borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	// Fill with white background
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	waterfallArea := image.Rect(
		borders.Left,
		borders.Top,
		borders.Left+wf.Width*scale,
		borders.Top+wf.Height*scale,
	)

	colorMap := NewColorMapperWithSize(r.config.ColorTheme, wf.Bounds, r.config.FlagColor, r.config.ColorMapSize)

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(annotatorConfig{
			TimeFormat:     r.config.TimeFormat,
			DatetimeFormat: r.config.DatetimeFormat,
			Location:       r.config.Location,
			FontSize:       r.config.FontSize,
			PixelScale:     scale,
			Borders:        borders,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, wf, colorMap); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	// Then render waterfall data (overwriting any overlapping annotations)
	r.renderWaterfall(img, waterfallArea, wf, colorMap)

	return img, nil
}

// renderWaterfall draws the samples using the color map
func (r *WaterfallRenderer) renderWaterfall(img *image.RGBA, area image.Rectangle, wf *WaterfallData, colorMap *ColorMapper) {
	scale := r.config.PixelScale
	for t := 0; t < wf.Height; t++ {
		for f := 0; f < wf.Width; f++ {
			v, ok := wf.Values.Value(t, f, 0)
			c := colorMap.GetColor(v, ok)

			cell := image.Rect(f*scale, t*scale, (f+1)*scale, (t+1)*scale).Add(area.Min)
			draw.Draw(img, cell, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
}
