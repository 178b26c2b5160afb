// Package playlist holds the ordered list of tracks the player works through.
package playlist

import (
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/olivier-w/plyr/internal/media"
)

// Track is one playable item. Tracks are immutable once added.
type Track struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Locator  string         `json:"url"`
	Kind     media.Kind     `json:"type"`
	Duration float64        `json:"duration,omitempty"`
	Meta     media.Metadata `json:"meta,omitempty"`
}

// NewTrack derives a Track from a file reference. The kind comes from the
// extension of name, falling back to the locator when name has none.
func NewTrack(locator, name string, meta media.Metadata) Track {
	if name == "" {
		name = locator
	}
	kindSource := name
	if media.Ext(name) == "" {
		kindSource = locator
	}
	return Track{
		ID:      uuid.NewString(),
		Name:    media.DisplayName(name),
		Locator: locator,
		Kind:    media.KindOf(kindSource),
		Meta:    meta,
	}
}

// Title returns the embedded title, or the display name.
func (t Track) Title() string {
	if t.Meta.Title != "" {
		return t.Meta.Title
	}
	return t.Name
}

// Playlist is an ordered sequence of tracks. Insertion order is significant.
// It is not safe for concurrent use.
type Playlist struct {
	tracks []Track
}

// New creates a Playlist holding a copy of tracks.
func New(tracks ...Track) *Playlist {
	p := &Playlist{}
	p.Append(tracks...)
	return p
}

// Append adds tracks to the end in the given order.
func (p *Playlist) Append(tracks ...Track) {
	p.tracks = append(p.tracks, tracks...)
}

// Len returns the total number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Track returns the track at index i, or false if out of range.
func (p *Playlist) Track(i int) (Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return Track{}, false
	}
	return p.tracks[i], true
}

// Tracks returns a copy of all tracks.
func (p *Playlist) Tracks() []Track {
	out := make([]Track, len(p.tracks))
	copy(out, p.tracks)
	return out
}

// IndexOf returns the index of the track with the given id, or -1.
func (p *Playlist) IndexOf(id string) int {
	_, idx, ok := lo.FindIndexOf(p.tracks, func(t Track) bool { return t.ID == id })
	if !ok {
		return -1
	}
	return idx
}

// Remove removes the track with the given id and returns its former index,
// or -1 if no track matched.
func (p *Playlist) Remove(id string) int {
	i := p.IndexOf(id)
	if i < 0 {
		return -1
	}
	p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)
	return i
}

// Move moves the track at from to position to, shifting the tracks in
// between by one. Returns false if either index is out of range.
func (p *Playlist) Move(from, to int) bool {
	n := len(p.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	t := p.tracks[from]
	if from < to {
		copy(p.tracks[from:to], p.tracks[from+1:to+1])
	} else {
		copy(p.tracks[to+1:from+1], p.tracks[to:from])
	}
	p.tracks[to] = t
	return true
}

// FollowMove returns where index cur ends up after Move(from, to), so that it
// keeps referring to the same track.
func FollowMove(cur, from, to int) int {
	switch {
	case cur == from:
		return to
	case from < cur && to >= cur:
		return cur - 1
	case from > cur && to <= cur:
		return cur + 1
	default:
		return cur
	}
}
