package tty

import (
	gocolor "image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"github.com/tmuxcore/tmuxd/internal/grid"
)

// ansi256Palette is the standard 256-color xterm palette (16 ANSI colors,
// a 6x6x6 color cube, then a 24-step grayscale ramp), used to downsample a
// cell's truecolor RGB when the attached terminal doesn't advertise 24-bit
// color support.
var ansi256Palette = buildAnsi256Palette()

func buildAnsi256Palette() [256]colorful.Color {
	var p [256]colorful.Color
	ansi16 := [16][3]uint8{
		{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
		{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
		{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
		{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
	}
	for i, c := range ansi16 {
		p[i], _ = colorful.MakeColor(gocolor.RGBA{R: uint32(c[0]) * 0x101, G: uint32(c[1]) * 0x101, B: uint32(c[2]) * 0x101, A: 0xffff})
	}
	steps := [6]uint8{0, 95, 135, 175, 215, 255}
	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				p[i], _ = colorful.MakeColor(gocolor.RGBA{
					R: uint32(steps[r]) * 0x101, G: uint32(steps[g]) * 0x101, B: uint32(steps[b]) * 0x101, A: 0xffff,
				})
				i++
			}
		}
	}
	for g := 0; g < 24; g++ {
		v := uint8(8 + g*10)
		p[i], _ = colorful.MakeColor(gocolor.RGBA{R: uint32(v) * 0x101, G: uint32(v) * 0x101, B: uint32(v) * 0x101, A: 0xffff})
		i++
	}
	return p
}

// nearestAnsi256 returns the palette index closest to (r,g,b) in Lab space,
// which tracks perceptual distance far better than naive Euclidean RGB.
func nearestAnsi256(r, g, b uint8) uint8 {
	target, _ := colorful.MakeColor(gocolor.RGBA{R: uint32(r) * 0x101, G: uint32(g) * 0x101, B: uint32(b) * 0x101, A: 0xffff})
	best := 0
	bestDist := target.DistanceLab(ansi256Palette[0])
	for i := 1; i < 256; i++ {
		d := target.DistanceLab(ansi256Palette[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return uint8(best)
}

// downsample converts a cell's color to whatever precision maxColors
// supports: truecolor passes through unchanged; everything else is
// reduced to the nearest of the 256-color (or 16-color) palette entries.
func downsample(c grid.ColorSpec, maxColors int) grid.ColorSpec {
	if c.Mode == grid.ColorDefault {
		return c
	}
	// nearest picks the closest of the first n palette entries in Lab space.
	nearest := func(r, g, b uint8, n int) uint8 {
		target, _ := colorful.MakeColor(gocolor.RGBA{R: uint32(r) * 0x101, G: uint32(g) * 0x101, B: uint32(b) * 0x101, A: 0xffff})
		best := 0
		for i := 1; i < n; i++ {
			if target.DistanceLab(ansi256Palette[i]) < target.DistanceLab(ansi256Palette[best]) {
				best = i
			}
		}
		return uint8(best)
	}
	if c.Mode == grid.ColorIndexed {
		if maxColors >= 256 || int(c.Index) < maxColors {
			return c
		}
		// Terminal can't represent the index directly; reduce via its RGB
		// approximation in the 256 table.
		rgb := ansi256Palette[c.Index]
		r, g, b := rgb.RGB255()
		return grid.ColorSpec{Mode: grid.ColorIndexed, Index: nearest(r, g, b, maxColorsOrSixteen(maxColors))}
	}
	if maxColors >= 1<<24 {
		return c
	}
	idx := nearestAnsi256(c.R, c.G, c.B)
	if maxColors < 256 {
		idx = nearest(c.R, c.G, c.B, maxColorsOrSixteen(maxColors))
	}
	return grid.ColorSpec{Mode: grid.ColorIndexed, Index: idx}
}

func maxColorsOrSixteen(n int) int {
	if n <= 0 {
		return 16
	}
	if n > 256 {
		return 256
	}
	return n
}

// detectDefaultColors queries the real terminal (via termenv, which reads
// OSC 10/11 answerback or $COLORFGBG) for its default fg/bg, so a pane
// spawned before any client attaches can pick a sane default palette.
func detectDefaultColors(out *termenv.Output) (fg, bg grid.ColorSpec, dark bool) {
	dark = out.HasDarkBackground()
	if c := out.ForegroundColor(); c != nil {
		fg = colorSpecFromTermenv(c)
	}
	if c := out.BackgroundColor(); c != nil {
		bg = colorSpecFromTermenv(c)
	}
	return fg, bg, dark
}

func colorSpecFromTermenv(c termenv.Color) grid.ColorSpec {
	r, g, b, _ := termenv.ConvertToRGB(c).RGBA()
	return grid.ColorSpec{Mode: grid.ColorRGB, R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}
