package host

import (
	"github.com/mattn/go-runewidth"

	"github.com/olivier-w/plyr/internal/player"
)

// StatusNameWidth is the widest track name shown in a status indicator.
const StatusNameWidth = 40

// TruncateTrackName shortens name to fit width display columns, ending in an
// ellipsis when cut.
func TruncateTrackName(name string, width int) string {
	return runewidth.Truncate(name, width, "…")
}

// Status icons show the transport state, matching the player's status line.
const (
	PlayingIcon = "▶"
	PausedIcon  = "❚❚"
)

// StatusText renders a broadcast for a one-line indicator. It is empty when
// no track is known.
func StatusText(s player.Status) string {
	if s.TrackName == "" {
		return ""
	}
	name := TruncateTrackName(s.TrackName, StatusNameWidth)
	if s.Playing {
		return PlayingIcon + " " + name
	}
	return PausedIcon + " " + name
}
