package visualizer

import (
	"strings"

	"github.com/muesli/termenv"
)

// subRows is the vertical resolution of one cell in eighth blocks.
const subRows = 8

var eighths = []rune("▁▂▃▄▅▆▇█")

type cell struct {
	ch  rune
	fg  colorRGB
	set bool
}

// Canvas is a terminal drawing surface addressed in cells, with eighth-block
// resolution for vertical fills.
type Canvas struct {
	w, h    int
	cells   []cell
	profile termenv.Profile
	seqs    map[colorRGB]string
}

// NewCanvas creates a blank w×h canvas.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{}
	c.SetProfile(termenv.EnvColorProfile())
	c.Resize(w, h)
	return c
}

// SetProfile changes the colour profile used by String.
func (c *Canvas) SetProfile(p termenv.Profile) {
	c.profile = p
	c.seqs = make(map[colorRGB]string)
}

// Resize changes the backing size and clears the surface.
func (c *Canvas) Resize(w, h int) {
	c.w, c.h = max(w, 0), max(h, 0)
	c.cells = make([]cell, c.w*c.h)
}

// Size returns width and height in cells.
func (c *Canvas) Size() (int, int) {
	return c.w, c.h
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	clear(c.cells)
}

// Set draws ch at column x, row y (0 is the top row).
func (c *Canvas) Set(x, y int, ch rune, fg colorRGB) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell{ch: ch, fg: fg, set: true}
}

// At returns the rune at x, y, or a space when blank.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.w || y >= c.h || !c.cells[y*c.w+x].set {
		return ' '
	}
	return c.cells[y*c.w+x].ch
}

// FillColumn fills column x from the bottom up to units eighths of a row.
// shade picks the colour for each row counted from the bottom.
func (c *Canvas) FillColumn(x, units int, shade func(row int) colorRGB) {
	units = min(units, c.h*subRows)
	for row := 0; units > 0; row++ {
		part := min(units, subRows)
		c.Set(x, c.h-1-row, eighths[part-1], shade(row))
		units -= part
	}
}

// String renders the canvas as lines of coloured text.
func (c *Canvas) String() string {
	var sb strings.Builder
	active := ""
	reset := func() {
		if active != "" {
			sb.WriteString(resetSeq)
			active = ""
		}
	}
	for y := range c.h {
		if y > 0 {
			reset()
			sb.WriteByte('\n')
		}
		for x := range c.w {
			cl := c.cells[y*c.w+x]
			if !cl.set {
				reset()
				sb.WriteByte(' ')
				continue
			}
			if seq := c.sequence(cl.fg); seq != active {
				sb.WriteString(seq)
				active = seq
			}
			sb.WriteRune(cl.ch)
		}
	}
	reset()
	return sb.String()
}

func (c *Canvas) sequence(fg colorRGB) string {
	seq, ok := c.seqs[fg]
	if !ok {
		seq = sequence(c.profile, fg)
		c.seqs[fg] = seq
	}
	return seq
}
