package player

import (
	"github.com/olivier-w/plyr/internal/playlist"
)

// RepeatMode governs Next at playlist boundaries.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// Next cycles off → all → one → off.
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// String returns the persisted name of the repeat mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// Icon returns a visual indicator for the repeat mode.
func (r RepeatMode) Icon() string {
	switch r {
	case RepeatAll:
		return "[repeat]"
	case RepeatOne:
		return "[repeat 1]"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r RepeatMode) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown values map to off.
func (r *RepeatMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "all":
		*r = RepeatAll
	case "one":
		*r = RepeatOne
	default:
		*r = RepeatOff
	}
	return nil
}

// State is a snapshot of the player. Playing, Loading, Position and Duration
// are written only by back-end events.
type State struct {
	Playlist     []playlist.Track
	CurrentIndex int
	Playing      bool
	Loading      bool
	Position     float64 // seconds
	Duration     float64 // seconds, 0 when unknown
	Volume       float64 // 0..1
	Muted        bool
	Speed        float64
	Shuffle      bool
	Repeat       RepeatMode
}

// CurrentTrack returns the track at CurrentIndex, or false when empty.
func (s State) CurrentTrack() (playlist.Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Playlist) {
		return playlist.Track{}, false
	}
	return s.Playlist[s.CurrentIndex], true
}

// Persisted is the subset of State that survives a reload.
type Persisted struct {
	Playlist     []playlist.Track `json:"playlist"`
	CurrentIndex int              `json:"currentIndex"`
	Volume       float64          `json:"volume"`
	Muted        bool             `json:"muted"`
	Speed        float64          `json:"speed"`
	Shuffle      bool             `json:"shuffle"`
	Repeat       RepeatMode       `json:"repeatMode"`
}

func (p Persisted) equal(o Persisted) bool {
	if p.CurrentIndex != o.CurrentIndex || p.Volume != o.Volume || p.Muted != o.Muted ||
		p.Speed != o.Speed || p.Shuffle != o.Shuffle || p.Repeat != o.Repeat ||
		len(p.Playlist) != len(o.Playlist) {
		return false
	}
	for i := range p.Playlist {
		if p.Playlist[i].ID != o.Playlist[i].ID {
			return false
		}
	}
	return true
}

// Speeds is the discrete set of playback rates offered to the user.
var Speeds = []float64{0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}

// NextSpeed returns the next faster entry of Speeds, staying at the top.
func NextSpeed(cur float64) float64 {
	for _, s := range Speeds {
		if s > cur+1e-9 {
			return s
		}
	}
	return Speeds[len(Speeds)-1]
}

// PrevSpeed returns the next slower entry of Speeds, staying at the bottom.
func PrevSpeed(cur float64) float64 {
	for i := len(Speeds) - 1; i >= 0; i-- {
		if Speeds[i] < cur-1e-9 {
			return Speeds[i]
		}
	}
	return Speeds[0]
}

func clampVolume(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
