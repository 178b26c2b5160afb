package visualizer

import (
	"math"
	"time"
)

const (
	// DefaultBars is the bar count used when none is configured.
	DefaultBars = 32
	// DefaultFPS caps redraws while animating.
	DefaultFPS = 30

	heightScale = 0.85
	barFill     = 0.7
	peakHold    = 20 // frames
	peakDecay   = 2  // eighth rows per frame
)

// BarCounts are the bar counts offered in settings.
var BarCounts = []int{8, 32, 80}

// Palette colours the bars.
type Palette struct {
	Bar        colorRGB
	Glow       colorRGB
	Peak       colorRGB
	Idle       colorRGB
	Background colorRGB
}

// DefaultPalette is violet bars over a dark background.
var DefaultPalette = Palette{
	Bar:        hexColor("#a78bfa"),
	Glow:       hexColor("#7c3aed"),
	Peak:       hexColor("#ddd6fe"),
	Idle:       lerpColor(hexColor("#a78bfa"), hexColor("#1e1b2e"), 0.8),
	Background: hexColor("#1e1b2e"),
}

// Options configures an Engine.
type Options struct {
	Bars     int
	FPS      int
	PeakHold bool

	// Smooth eases bar heights with a spring instead of jumping per frame.
	Smooth  bool
	Palette *Palette
}

type peak struct {
	units float64
	hold  int
}

// Engine renders frequency magnitudes as a bar graph on a Canvas. When not
// animating, or when it has no source, it shows a static idle pattern.
type Engine struct {
	src       FrequencySource
	bars      int
	fps       int
	peakHold  bool
	smooth    bool
	palette   Palette
	canvas    *Canvas
	data      []byte
	heights   []float64 // eighth rows
	peaks     []peak
	spring    springField
	animating bool
	last      time.Time
}

// New creates an engine reading from src. A nil src renders idle only.
func New(src FrequencySource, opts Options) *Engine {
	e := &Engine{
		src:      src,
		fps:      opts.FPS,
		peakHold: opts.PeakHold,
		smooth:   opts.Smooth,
		palette:  DefaultPalette,
		canvas:   NewCanvas(0, 0),
	}
	if e.fps <= 0 {
		e.fps = DefaultFPS
	}
	if opts.Palette != nil {
		e.palette = *opts.Palette
	}
	if src != nil {
		e.data = make([]byte, src.FrequencyBinCount())
	}
	e.spring = newSpringField(e.fps, 9, 0.9)
	e.SetBars(opts.Bars)
	return e
}

// SetBars changes the number of bars and redraws.
func (e *Engine) SetBars(n int) {
	if n <= 0 {
		n = DefaultBars
	}
	e.bars = n
	e.heights = make([]float64, n)
	e.peaks = make([]peak, n)
	e.spring.reset(n)
	e.redraw()
}

// Bars returns the configured bar count.
func (e *Engine) Bars() int {
	return e.bars
}

// SetPeakHold toggles the peak markers.
func (e *Engine) SetPeakHold(on bool) {
	e.peakHold = on
	clear(e.peaks)
	e.redraw()
}

// PeakHold reports whether peak markers are drawn.
func (e *Engine) PeakHold() bool {
	return e.peakHold
}

// SetAnimating starts or stops live rendering. Stopping draws the idle
// pattern at once.
func (e *Engine) SetAnimating(on bool) {
	if e.animating == on {
		return
	}
	e.animating = on
	e.last = time.Time{}
	if !on {
		clear(e.heights)
		clear(e.peaks)
		e.spring.reset(e.bars)
	}
	e.redraw()
}

// Animating reports whether live frames are being drawn.
func (e *Engine) Animating() bool {
	return e.animating
}

// Resize tracks the size of the surface and redraws immediately.
func (e *Engine) Resize(w, h int) {
	cw, ch := e.canvas.Size()
	if cw == w && ch == h {
		return
	}
	e.canvas.Resize(w, h)
	e.redraw()
}

// Frame draws the next live frame if enough time has passed since the last
// one. It reports whether the surface changed.
func (e *Engine) Frame(now time.Time) bool {
	if !e.animating || e.src == nil {
		return false
	}
	if !e.last.IsZero() && now.Sub(e.last) < time.Second/time.Duration(e.fps) {
		return false
	}
	e.last = now
	e.sample()
	e.drawBars()
	return true
}

// View returns the rendered surface.
func (e *Engine) View() string {
	return e.canvas.String()
}

func (e *Engine) redraw() {
	if e.animating && e.src != nil {
		e.drawBars()
		return
	}
	e.drawIdle()
}

// sample reads the analyser and updates bar heights and peaks.
func (e *Engine) sample() {
	e.src.ByteFrequencyData(e.data)
	_, h := e.canvas.Size()
	full := float64(h * subRows)
	for i := range e.bars {
		idx := int(math.Floor(float64(i) / float64(e.bars) * float64(len(e.data))))
		target := float64(e.data[idx]) / 255 * full * heightScale
		if e.smooth {
			target = max(e.spring.step(i, target), 0)
		}
		e.heights[i] = target
		e.updatePeak(i, target)
	}
}

func (e *Engine) updatePeak(i int, height float64) {
	p := &e.peaks[i]
	switch {
	case height >= p.units:
		p.units = height
		p.hold = peakHold
	case p.hold > 0:
		p.hold--
	default:
		p.units = max(height, p.units-peakDecay)
	}
}

// layout returns the first column and width of bar i.
func (e *Engine) layout(i int) (x, width int) {
	w, _ := e.canvas.Size()
	slot := float64(w) / float64(e.bars)
	x = int(float64(i) * slot)
	width = max(int(slot*barFill), 1)
	return x, width
}

func (e *Engine) drawBars() {
	e.canvas.Clear()
	_, h := e.canvas.Size()
	for i := range e.bars {
		x, width := e.layout(i)
		units := int(math.Round(e.heights[i]))
		rows := max((units+subRows-1)/subRows, 1)
		shade := func(row int) colorRGB {
			return barColor(e.palette, (float64(row)+0.5)/float64(rows))
		}
		for dx := range width {
			u := units
			// Rounded top: outer columns of wide bars stop a little short.
			if width > 2 && (dx == 0 || dx == width-1) {
				u = max(units-subRows/2, min(units, 1))
			}
			e.canvas.FillColumn(x+dx, u, shade)
		}
		if e.peakHold {
			e.drawPeak(i, x, width, units, h)
		}
	}
}

// drawPeak draws a thin marker at the held peak when it sits above the bar.
func (e *Engine) drawPeak(i, x, width, units, h int) {
	pu := int(math.Round(e.peaks[i].units))
	if pu <= 0 || pu <= units {
		return
	}
	row := min((pu-1)/subRows, h-1)
	if row < (units+subRows-1)/subRows {
		return
	}
	for dx := range width {
		e.canvas.Set(x+dx, h-1-row, '▔', e.palette.Peak)
	}
}

// idleHeight is the decorative height of bar i, in eighth rows.
func idleHeight(i int) int {
	px := 3 + math.Sin(float64(i)*0.4)*2
	return max(int(math.Round(px/3*subRows/2)), 1)
}

func (e *Engine) drawIdle() {
	e.canvas.Clear()
	for i := range e.bars {
		x, width := e.layout(i)
		u := idleHeight(i)
		for dx := range width {
			e.canvas.FillColumn(x+dx, u, func(int) colorRGB { return e.palette.Idle })
		}
	}
}
