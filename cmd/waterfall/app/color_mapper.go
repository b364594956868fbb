package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme represents a predefined color scheme for visibility values.
// - ClassicTheme: Traditional waterfall display (blue to red)
// - GrayscaleTheme: Monochrome visualization
// - JungleTheme: Dark green to yellow for better contrast
// - ThermalTheme: Heat map visualization
// - MarineTheme: Water-depth inspired colors
// - EnhancedTheme: Multi-stage map stretching the lower values
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	JungleTheme    ColorTheme = "jungle"
	ThermalTheme   ColorTheme = "thermal"
	MarineTheme    ColorTheme = "marine"
	EnhancedTheme  ColorTheme = "enhanced"

	DefaultColorMapSize = 256 // Default number of colors in the map
)

var validThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
	EnhancedTheme:  {},
}

// ColorMapper maps display values onto a pre-computed gradient of the theme.
// Flagged samples are drawn in the flag color.
type ColorMapper struct {
	colorMap      []color.Color // Pre-computed colors
	theme         func(float64) colorful.Color
	themeName     ColorTheme
	flagColor     color.Color
	size          int
	valuePerIndex float64
	boundsMin     float64
}

// NewColorMapper creates a color mapper with the default map size
func NewColorMapper(theme ColorTheme, bounds ValueBounds, flagColor colorful.Color) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, flagColor, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a color mapper with size pre-computed colors
func NewColorMapperWithSize(theme ColorTheme, bounds ValueBounds, flagColor colorful.Color, size int) *ColorMapper {
	if size <= 1 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		flagColor: flagColor.Clamped(),
		size:      size,
	}
	for i := 0; i < cm.size; i++ {
		normalized := float64(i) / float64(cm.size-1)
		cm.colorMap[i] = cm.theme(normalized).Clamped()
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds changes the value range spanned by the gradient
func (cm *ColorMapper) UpdateBounds(bounds ValueBounds) {
	bounds = bounds.widen()
	cm.boundsMin = bounds.Min
	cm.valuePerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)
}

// GetColor returns the color of a value, values outside the bounds are
// clamped to the ends of the gradient
func (cm *ColorMapper) GetColor(v float64, valid bool) color.Color {
	if !valid || math.IsNaN(v) {
		return cm.flagColor
	}

	index := int((v - cm.boundsMin) / cm.valuePerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// Size returns the color map size
func (cm *ColorMapper) Size() int {
	return cm.size
}

// Color theme implementations, v is normalized to [0, 1]
func getColorTheme(theme ColorTheme) func(float64) colorful.Color {
	switch theme {
	case ClassicTheme:
		return func(v float64) colorful.Color {
			return colorful.Hsv(240-(v*240), 0.9+(v*0.1), math.Pow(v, 0.7))
		}

	case GrayscaleTheme:
		return func(v float64) colorful.Color {
			g := math.Pow(v, 0.7)
			return colorful.Color{R: g, G: g, B: g}
		}

	case JungleTheme:
		return func(v float64) colorful.Color {
			return colorful.Hsv(120-(v*60), 1.0, 0.3+(math.Pow(v, 0.6)*0.7))
		}

	case ThermalTheme:
		black := colorful.Color{}
		red := colorful.Color{R: 1}
		yellow := colorful.Color{R: 1, G: 1}
		white := colorful.Color{R: 1, G: 1, B: 1}
		return func(v float64) colorful.Color {
			switch {
			case v < 0.33:
				return black.BlendRgb(red, v*3)
			case v < 0.66:
				return red.BlendRgb(yellow, (v-0.33)*3)
			default:
				return yellow.BlendRgb(white, math.Min(1, (v-0.66)*3))
			}
		}

	case MarineTheme:
		return func(v float64) colorful.Color {
			return colorful.Hsv(240-(v*60), 1.0-(v*0.8), 0.3+(math.Pow(v, 0.6)*0.7))
		}

	default:
		return func(v float64) colorful.Color {
			v = math.Max(0, math.Min(1, v))
			enhanced := math.Pow(v, 0.7)

			switch {
			case v < 0.25:
				return colorful.Hsv(240, 1.0, math.Min(1.0, enhanced*4))
			case v < 0.5:
				return colorful.Hsv(240-((v-0.25)*240), 1.0, math.Min(1.0, enhanced*1.5))
			case v < 0.75:
				p := (v - 0.5) * 4
				return colorful.Hsv(180-(p*120), 1.0, math.Min(1.0, enhanced*1.5))
			default:
				p := (v - 0.75) * 4
				return colorful.Hsv(60-(p*60), 1.0, 1.0)
			}
		}
	}
}
