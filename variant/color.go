package variant

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

func fromColorful(cf colorful.Color, alpha float64) Color {
	return Color{R: cf.R, G: cf.G, B: cf.B, A: alpha}
}

// HSV returns hue, saturation and value, each in [0, 1].
func (c Color) HSV() (h, s, v float64) {
	h, s, v = c.colorful().Hsv()
	return h / 360, s, v
}

func ColorFromHSV(h, s, v, alpha float64) Color {
	return fromColorful(colorful.Hsv(math.Mod(h, 1)*360, s, v), alpha)
}

func to8(f float64) int64 {
	return int64(math.Round(math.Max(0, math.Min(1, f)) * 255))
}

// HTML renders the color as rrggbb, followed by aa when withAlpha is set.
func (c Color) HTML(withAlpha bool) string {
	hex := strings.TrimPrefix(c.colorful().Clamped().Hex(), "#")
	if withAlpha {
		hex += fmt.Sprintf("%02x", to8(c.A))
	}
	return hex
}

// ParseHTMLColor accepts rgb, rrggbb or rrggbbaa with an optional leading #.
func ParseHTMLColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	alpha := 1.0
	if len(hex) == 8 {
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color alpha %q", s)
		}
		alpha = float64(a) / 255
		hex = hex[:6]
	}
	cf, err := colorful.Hex("#" + hex)
	if err != nil {
		return Color{}, fmt.Errorf("invalid html color %q", s)
	}
	return fromColorful(cf, alpha), nil
}

func (c Color) Lightened(amount float64) Color {
	return fromColorful(c.colorful().BlendRgb(colorful.Color{R: 1, G: 1, B: 1}, amount), c.A)
}

func (c Color) Darkened(amount float64) Color {
	return fromColorful(c.colorful().BlendRgb(colorful.Color{}, amount), c.A)
}

func (c Color) Inverted() Color {
	return Color{R: 1 - c.R, G: 1 - c.G, B: 1 - c.B, A: c.A}
}

func (c Color) Blend(to Color, t float64) Color {
	return fromColorful(c.colorful().BlendRgb(to.colorful(), t), c.A+(to.A-c.A)*t)
}
