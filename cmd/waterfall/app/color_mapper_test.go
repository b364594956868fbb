package app

import (
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
)

func TestColorMapper_GetColor(t *testing.T) {
	flag := colorful.Color{R: 1, G: 0, B: 1}
	cm := NewColorMapperWithSize(GrayscaleTheme, ValueBounds{Min: 0, Max: 10}, flag, 11)
	assert.Equal(t, 11, cm.Size())
	assert.Equal(t, GrayscaleTheme, cm.ThemeName())

	assert.Equal(t, flag, cm.GetColor(5, false))
	assert.Equal(t, flag, cm.GetColor(math.NaN(), true))

	assert.Equal(t, cm.GetColor(0, true), cm.GetColor(-100, true), "below range clamps to the lowest color")
	assert.Equal(t, cm.GetColor(10, true), cm.GetColor(100, true), "above range clamps to the highest color")

	low := cm.GetColor(0, true).(colorful.Color)
	high := cm.GetColor(10, true).(colorful.Color)
	assert.InDelta(t, 0, low.R, 1e-9)
	assert.InDelta(t, 1, high.R, 1e-9)
}

func TestColorMapper_UpdateBounds(t *testing.T) {
	cm := NewColorMapperWithSize(GrayscaleTheme, ValueBounds{Min: 0, Max: 1}, colorful.Color{}, 16)
	top := cm.GetColor(2, true)

	cm.UpdateBounds(ValueBounds{Min: 0, Max: 100})
	assert.NotEqual(t, top, cm.GetColor(1, true))
	assert.Equal(t, top, cm.GetColor(200, true))
}

func TestColorThemes(t *testing.T) {
	for theme := range validThemes {
		t.Run(string(theme), func(t *testing.T) {
			fn := getColorTheme(theme)
			for _, v := range []float64{0, 0.2, 0.5, 0.7, 1} {
				assert.True(t, fn(v).Clamped().IsValid(), "v=%v", v)
			}
		})
	}
}
