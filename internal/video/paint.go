package video

import (
	"image/color"
	"strings"

	"github.com/muesli/termenv"
)

const lumaRamp = " .:-=+*#%@"

// geometry is the decode size in pixels and the painted size in cells.
type geometry struct {
	pixW, pixH int
	cols, rows int
}

func (g geometry) frameBytes() int { return g.pixW * g.pixH * 3 }

// fit scales a srcW x srcH picture into at most cols x rows cells, keeping the
// aspect ratio. A cell is about twice as tall as it is wide; half blocks carry
// two pixel rows per cell.
func fit(cols, rows, srcW, srcH int, halfBlocks bool) geometry {
	if cols <= 0 || rows <= 0 || srcW <= 0 || srcH <= 0 {
		return geometry{}
	}
	perCell := 1
	if halfBlocks {
		perCell = 2
	}
	aspect := float64(srcW) / float64(srcH)

	// Pixel heights are in half-cell units when halfBlocks is set.
	w := cols
	h := int(float64(w) / aspect * float64(perCell) / 2)
	if h > rows*perCell {
		h = rows * perCell
		w = min(int(float64(h)*aspect*2/float64(perCell)), cols)
	}
	w = max(w, 4)
	h = max(h, perCell*2)

	return geometry{pixW: w, pixH: h, cols: w, rows: (h + perCell - 1) / perCell}
}

// painter turns rgb24 frames into terminal text for one colour profile.
type painter struct {
	profile termenv.Profile
	sb      strings.Builder
}

func newPainter(p termenv.Profile) *painter {
	return &painter{profile: p}
}

func (p *painter) halfBlocks() bool { return p.profile != termenv.Ascii }

func (p *painter) paint(frame []byte, g geometry) string {
	if g.cols <= 0 || len(frame) < g.frameBytes() {
		return ""
	}
	p.sb.Reset()
	p.sb.Grow(g.cols * g.rows * 24)
	if p.halfBlocks() {
		p.paintBlocks(frame, g)
	} else {
		p.paintLuma(frame, g)
	}
	return p.sb.String()
}

// paintBlocks draws "▀" with the upper pixel as foreground and the lower one
// as background.
func (p *painter) paintBlocks(frame []byte, g geometry) {
	for row := range g.rows {
		var lastFg, lastBg string
		for col := range g.cols {
			x := col * g.pixW / g.cols
			fg := p.seq(pixel(frame, g.pixW, x, row*2), false)
			bg := p.seq(pixel(frame, g.pixW, x, min(row*2+1, g.pixH-1)), true)
			if fg != lastFg {
				p.sb.WriteString(fg)
				lastFg = fg
			}
			if bg != lastBg {
				p.sb.WriteString(bg)
				lastBg = bg
			}
			p.sb.WriteString("▀")
		}
		p.sb.WriteString(termenv.CSI + termenv.ResetSeq + "m")
		if row < g.rows-1 {
			p.sb.WriteByte('\n')
		}
	}
}

func (p *painter) paintLuma(frame []byte, g geometry) {
	for row := range g.rows {
		y := row * g.pixH / g.rows
		for col := range g.cols {
			c := pixel(frame, g.pixW, col*g.pixW/g.cols, y)
			p.sb.WriteByte(lumaRamp[int(luma(c))*(len(lumaRamp)-1)/255])
		}
		if row < g.rows-1 {
			p.sb.WriteByte('\n')
		}
	}
}

func (p *painter) seq(c color.RGBA, bg bool) string {
	s := p.profile.FromColor(c).Sequence(bg)
	if s == "" {
		return ""
	}
	return termenv.CSI + s + "m"
}

func pixel(frame []byte, stride, x, y int) color.RGBA {
	off := (y*stride + x) * 3
	if off < 0 || off+2 >= len(frame) {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: frame[off], G: frame[off+1], B: frame[off+2], A: 0xff}
}

// luma is the BT.601 brightness of c.
func luma(c color.RGBA) uint8 {
	return uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000)
}
