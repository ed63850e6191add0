package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-planetarium/internal/dome"
)

const (
	// Star glyphs by magnitude
	glyphStarBright  = '✶' // mag < 1.5
	glyphStarMedium  = '✸' // mag 1.5-3.0
	glyphStarDim     = '•' // mag 3.0-4.5
	glyphStarVeryDim = '·' // mag > 4.5

	glyphRim   = '∙'
	glyphNotch = '▸'

	colorStarBright  = "255"
	colorStarMedium  = "250"
	colorStarDim     = "244"
	colorStarVeryDim = "240"
	colorRim         = "238"
	colorNotch       = "205"
)

// starGlyph returns the glyph and color for a star of the given magnitude.
// Brighter stars get more prominent symbols.
func starGlyph(mag float64) (rune, lipgloss.Color) {
	switch {
	case mag < 1.5:
		return glyphStarBright, colorStarBright
	case mag < 3.0:
		return glyphStarMedium, colorStarMedium
	case mag < 4.5:
		return glyphStarDim, colorStarDim
	default:
		return glyphStarVeryDim, colorStarVeryDim
	}
}

// RenderDomeMap draws the perforations seen from above the dome. The rim is
// the dome base, the center is the zenith and the notch marks +X. Terminal
// cells are about twice as tall as wide, so height should be width/2.
func RenderDomeMap(perfs []dome.Perforation, width, height int, styled bool) string {
	if width < 5 || height < 3 {
		return ""
	}

	canvas := make([][]rune, height)
	colors := make([][]lipgloss.Color, height)
	for y := 0; y < height; y++ {
		canvas[y] = make([]rune, width)
		colors[y] = make([]lipgloss.Color, width)
		for x := 0; x < width; x++ {
			canvas[y][x] = ' '
			colors[y][x] = colorRim
		}
	}

	// Rim
	steps := 4 * (width + height)
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x, y := toCell(math.Cos(a), math.Sin(a), width, height)
		canvas[y][x] = glyphRim
	}

	// Brightest last so it wins a shared cell
	order := make([]int, len(perfs))
	for i := range order {
		order[i] = i
	}
	sortByMagDesc(order, perfs)

	for _, i := range order {
		p := perfs[i]
		r := p.Point.Position.Norm()
		if r == 0 {
			continue
		}
		x, y := toCell(p.Point.Position.X/r, p.Point.Position.Y/r, width, height)
		g, c := starGlyph(p.Point.Mag)
		canvas[y][x] = g
		colors[y][x] = c
	}

	nx, ny := toCell(1, 0, width, height)
	canvas[ny][nx] = glyphNotch
	colors[ny][nx] = colorNotch

	var b strings.Builder
	for y := 0; y < height; y++ {
		line := canvas[y]
		if !styled {
			b.WriteString(strings.TrimRight(string(line), " "))
		} else {
			for x := 0; x < width; x++ {
				style := lipgloss.NewStyle().Foreground(colors[y][x])
				b.WriteString(style.Render(string(line[x])))
			}
		}
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// toCell maps a point of the unit disc to a canvas cell, +Y up.
func toCell(x, y float64, width, height int) (int, int) {
	cx := int(math.Round((x + 1) / 2 * float64(width-1)))
	cy := int(math.Round((1 - y) / 2 * float64(height-1)))
	return clampInt(cx, 0, width-1), clampInt(cy, 0, height-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortByMagDesc(idx []int, perfs []dome.Perforation) {
	// insertion sort keeps ties in input order
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && perfs[idx[j]].Point.Mag > perfs[idx[j-1]].Point.Mag; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
}
