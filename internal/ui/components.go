package ui

import (
	"fmt"
	"strings"

	"github.com/olivier-w/plyr/internal/player"
)

func renderProgressBar(elapsed, total float64, width int) string {
	if width < 10 {
		width = 10
	}
	barWidth := width - 2 // leave some margin

	var ratio float64
	if total > 0 {
		ratio = elapsed / total
	}
	ratio = min(max(ratio, 0), 1)

	filled := int(ratio * float64(barWidth))
	return progressStyle.Render(strings.Repeat("━", filled)) + strings.Repeat("─", barWidth-filled)
}

func renderVolume(vol float64, muted bool) string {
	if muted {
		return "muted"
	}
	return fmt.Sprintf("vol %d%%", int(vol*100+0.5))
}

func renderSpeed(speed float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", speed), "0"), ".") + "x"
}

func shuffleIcon(on bool) string {
	if on {
		return "[shuffle]"
	}
	return ""
}

// transportIcons joins the non-empty mode indicators.
func transportIcons(s player.State) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Repeat.Icon(), shuffleIcon(s.Shuffle)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if s.Speed != 1 {
		parts = append(parts, renderSpeed(s.Speed))
	}
	return strings.Join(parts, "  ")
}
