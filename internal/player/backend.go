package player

import (
	"time"

	"github.com/olivier-w/plyr/internal/media"
)

// Backend is one media playback primitive. Commands return immediately; their
// outcome is reported later through events carrying the load token.
type Backend interface {
	Load(locator string, token uint64)
	Play()
	Pause()
	Stop()
	// Paused reports the commanded state: false from Play until Pause, Stop
	// or the end of the source, even before the back-end confirms.
	Paused() bool
	Seek(pos time.Duration)
	Position() time.Duration
	SetVolume(v float64)
	SetMuted(muted bool)
	SetRate(rate float64)
	Close()
}

// Backends is the pair of audio and video back-ends, addressed by track kind.
type Backends struct {
	Audio Backend
	Video Backend
}

// For resolves the back-end serving kind.
func (b Backends) For(kind media.Kind) Backend {
	if kind == media.Video {
		return b.Video
	}
	return b.Audio
}

// Other resolves the back-end that must stay idle while kind is active.
func (b Backends) Other(kind media.Kind) Backend {
	if kind == media.Video {
		return b.Audio
	}
	return b.Video
}

func (b Backends) each(fn func(Backend)) {
	if b.Audio != nil {
		fn(b.Audio)
	}
	if b.Video != nil && b.Video != b.Audio {
		fn(b.Video)
	}
}
