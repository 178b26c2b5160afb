package visualizer

import (
	"image/color"
	"strconv"

	"github.com/muesli/termenv"
)

var resetSeq = termenv.CSI + termenv.ResetSeq + "m"

type colorRGB struct {
	R uint8
	G uint8
	B uint8
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lerpColor(a, b colorRGB, t float64) colorRGB {
	t = clamp01(t)
	return colorRGB{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
	}
}

// hexColor parses "#rrggbb". Malformed input yields black.
func hexColor(s string) colorRGB {
	var c colorRGB
	if len(s) != 7 || s[0] != '#' {
		return c
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return c
	}
	return colorRGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// barColor follows the bar gradient: accent at the base, the bar colour at
// mid height, fading toward the background at the top.
func barColor(p Palette, t float64) colorRGB {
	t = clamp01(t)
	if t < 0.5 {
		return lerpColor(p.Glow, p.Bar, t*2)
	}
	return lerpColor(p.Bar, lerpColor(p.Bar, p.Background, 0.55), (t-0.5)*2)
}

// sequence is the foreground escape for c under p, empty when p has no colour.
func sequence(p termenv.Profile, c colorRGB) string {
	s := p.FromColor(color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}).Sequence(false)
	if s == "" {
		return ""
	}
	return termenv.CSI + s + "m"
}
