package player

import "time"

// EventKind names a back-end lifecycle event.
type EventKind int

const (
	EventPlay EventKind = iota
	EventPause
	EventTimeUpdate
	EventDurationChange
	EventWaiting
	EventCanPlay
	EventEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventTimeUpdate:
		return "timeupdate"
	case EventDurationChange:
		return "durationchange"
	case EventWaiting:
		return "waiting"
	case EventCanPlay:
		return "canplay"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is reported by a back-end after a command takes effect. Token is the
// load token of the source the event belongs to.
type Event struct {
	Kind     EventKind
	Token    uint64
	Position time.Duration
	Duration time.Duration
	Err      error
}

// EventSink receives back-end events. Implementations must not block for long;
// the controller's loop drains them.
type EventSink func(Event)
