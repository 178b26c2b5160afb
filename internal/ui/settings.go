package ui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/plyr/internal/store"
	"github.com/olivier-w/plyr/internal/visualizer"
)

const (
	rowVisualizer = iota
	rowPeakHold
	rowBars
	settingRows
)

// settingsPanel edits the presentation settings in place.
type settingsPanel struct {
	cursor   int
	settings store.Settings
}

// update applies a key to the panel. It reports whether the settings changed
// and whether the panel should close.
func (p settingsPanel) update(msg tea.KeyMsg) (settingsPanel, bool, bool) {
	switch msg.String() {
	case "esc", ",", "q":
		return p, false, true
	case "up", "k":
		p.cursor = (p.cursor + settingRows - 1) % settingRows
	case "down", "j", "tab":
		p.cursor = (p.cursor + 1) % settingRows
	case "left", "h":
		return p.change(-1), true, false
	case "right", "l", "enter", " ":
		return p.change(1), true, false
	}
	return p, false, false
}

func (p settingsPanel) change(dir int) settingsPanel {
	switch p.cursor {
	case rowVisualizer:
		p.settings.Visualizer = !p.settings.Visualizer
	case rowPeakHold:
		p.settings.PeakHold = !p.settings.PeakHold
	case rowBars:
		p.settings.Bars = stepBars(p.settings.Bars, dir)
	}
	return p
}

// stepBars moves to the neighbouring allowed bar count, wrapping around.
func stepBars(cur, dir int) int {
	counts := visualizer.BarCounts
	i := slices.Index(counts, cur)
	if i < 0 {
		return visualizer.DefaultBars
	}
	return counts[(i+dir+len(counts))%len(counts)]
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (p settingsPanel) View() string {
	rows := []struct{ label, value string }{
		{"Visualizer", onOff(p.settings.Visualizer)},
		{"Peak hold", onOff(p.settings.PeakHold)},
		{"Bars", fmt.Sprint(p.settings.Bars)},
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Settings") + "\n\n")
	for i, r := range rows {
		line := fmt.Sprintf("%-12s %s", r.label, r.value)
		if i == p.cursor {
			b.WriteString(selectedStyle.Render("› "+line) + "\n")
		} else {
			b.WriteString(trackStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("j/k move  ←/→ change  esc close"))
	return overlayStyle.Render(b.String())
}
