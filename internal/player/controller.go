package player

import (
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/media"
	"github.com/olivier-w/plyr/internal/playlist"
)

// restartThreshold is how far into a track Prev restarts it instead of
// going to the previous track.
const restartThreshold = 3 * time.Second

// FileRef is a file handed over by the host for inclusion in the playlist.
type FileRef struct {
	Locator string
	Name    string
	Meta    media.Metadata
}

// Status is the now-playing broadcast sent to the host.
type Status struct {
	Playing   bool
	TrackName string
}

// StatusSink receives now-playing broadcasts.
type StatusSink interface {
	Publish(Status)
}

// Persister receives the persisted subset whenever it changes. Save must not
// block; the latest value wins.
type Persister interface {
	Save(Persisted)
}

// Config carries host-provided defaults.
type Config struct {
	DefaultVolume float64 // 0-100
	DefaultSpeed  float64
	Autoplay      bool
}

// Controller is the single source of truth for playlist contents and
// transport state. It is not safe for concurrent use: operations and
// HandleEvent must be called from one loop.
type Controller struct {
	backends  Backends
	list      *playlist.Playlist
	state     State
	token     uint64
	seeded    bool
	closed    bool
	saved     Persisted
	status    StatusSink
	persister Persister
	intn      func(n int) int
	log       zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for absorbed failures and stale events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l.With().Str("component", "player").Logger() }
}

// WithStatusSink sets where now-playing broadcasts go.
func WithStatusSink(s StatusSink) Option {
	return func(c *Controller) { c.status = s }
}

// WithPersister sets where the persisted subset is written on change.
func WithPersister(p Persister) Option {
	return func(c *Controller) { c.persister = p }
}

// WithRand replaces the random source used by shuffle.
func WithRand(intn func(n int) int) Option {
	return func(c *Controller) { c.intn = intn }
}

// New creates a Controller with an empty playlist and default transport.
func New(b Backends, opts ...Option) *Controller {
	c := &Controller{
		backends: b,
		list:     playlist.New(),
		state: State{
			CurrentIndex: -1,
			Volume:       0.8,
			Speed:        1,
		},
		intn: rand.IntN,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.saved = c.Persisted()
	c.backends.each(func(be Backend) {
		be.SetVolume(c.state.Volume)
		be.SetRate(c.state.Speed)
	})
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Playlist = c.list.Tracks()
	return s
}

// Persisted returns the subset of state that survives a reload.
func (c *Controller) Persisted() Persisted {
	return Persisted{
		Playlist:     c.list.Tracks(),
		CurrentIndex: c.state.CurrentIndex,
		Volume:       c.state.Volume,
		Muted:        c.state.Muted,
		Speed:        c.state.Speed,
		Shuffle:      c.state.Shuffle,
		Repeat:       c.state.Repeat,
	}
}

// Restore replaces the state with a persisted snapshot. Playback is never
// resumed: the current track's source is attached paused.
func (c *Controller) Restore(p Persisted) {
	c.list = playlist.New(p.Playlist...)
	c.state = State{
		CurrentIndex: p.CurrentIndex,
		Volume:       clampVolume(p.Volume),
		Muted:        p.Muted,
		Speed:        p.Speed,
		Shuffle:      p.Shuffle,
		Repeat:       p.Repeat,
	}
	if c.state.Speed <= 0 {
		c.state.Speed = 1
	}
	switch n := c.list.Len(); {
	case n == 0:
		c.state.CurrentIndex = -1
	case c.state.CurrentIndex < 0:
		c.state.CurrentIndex = 0
	case c.state.CurrentIndex >= n:
		c.state.CurrentIndex = n - 1
	}
	c.seeded = true
	c.backends.each(func(be Backend) {
		be.SetVolume(c.state.Volume)
		be.SetMuted(c.state.Muted)
		be.SetRate(c.state.Speed)
	})
	if t, ok := c.list.Track(c.state.CurrentIndex); ok {
		c.loadTrack(t, false)
	}
	c.saved = c.Persisted()
}

// ApplyConfig seeds volume and speed from the host defaults. Only the first
// config counts, and none does after a restore: later messages never touch
// the transport.
func (c *Controller) ApplyConfig(cfg Config) {
	if c.seeded {
		return
	}
	c.seeded = true
	c.SetVolume(cfg.DefaultVolume / 100)
	if cfg.DefaultSpeed > 0 {
		c.SetSpeed(cfg.DefaultSpeed)
	}
}

// AddFiles appends tracks in input order. When the playlist was empty the
// first new track is loaded and started.
func (c *Controller) AddFiles(files []FileRef) {
	if len(files) == 0 {
		return
	}
	wasEmpty := c.list.Len() == 0
	tracks := make([]playlist.Track, len(files))
	for i, f := range files {
		tracks[i] = playlist.NewTrack(f.Locator, f.Name, f.Meta)
	}
	c.list.Append(tracks...)
	if wasEmpty {
		c.state.CurrentIndex = 0
		c.loadTrack(tracks[0], true)
	}
	c.commit()
}

// LoadTrack makes the track at index i current, optionally starting it.
// Out-of-range indices are ignored.
func (c *Controller) LoadTrack(i int, autoplay bool) {
	t, ok := c.list.Track(i)
	if !ok {
		return
	}
	c.state.CurrentIndex = i
	c.loadTrack(t, autoplay)
	c.commit()
}

// loadTrack swaps the source. The new token invalidates every event still
// in flight for the previous source.
func (c *Controller) loadTrack(t playlist.Track, autoplay bool) {
	c.token++
	c.state.Loading = true
	c.state.Position = 0
	c.state.Duration = t.Duration
	// A fresh source is not playing until its back-end says so.
	c.setPlaying(false)

	if other := c.backends.Other(t.Kind); other != nil {
		other.Stop()
	}
	active := c.backends.For(t.Kind)
	if active == nil {
		c.log.Warn().Str("kind", string(t.Kind)).Msg("No back-end for track kind")
		c.state.Loading = false
		return
	}
	active.Load(t.Locator, c.token)
	if autoplay {
		active.Play()
	}
	c.log.Debug().Str("track", t.Name).Uint64("token", c.token).Bool("autoplay", autoplay).Msg("Loaded track")
}

func (c *Controller) active() Backend {
	t, ok := c.list.Track(c.state.CurrentIndex)
	if !ok {
		return nil
	}
	return c.backends.For(t.Kind)
}

// Play asks the active back-end to start. Playing flips when it reports back.
func (c *Controller) Play() {
	if be := c.active(); be != nil {
		be.Play()
	}
}

// Pause asks the active back-end to pause.
func (c *Controller) Pause() {
	if be := c.active(); be != nil {
		be.Pause()
	}
}

// TogglePlay asks the active back-end whether it is paused and flips that.
// A play still being opened counts as playing.
func (c *Controller) TogglePlay() {
	be := c.active()
	if be == nil {
		return
	}
	if be.Paused() {
		be.Play()
		return
	}
	be.Pause()
}

// Seek moves the active back-end to pos. Bounds are the back-end's concern.
func (c *Controller) Seek(pos time.Duration) {
	if be := c.active(); be != nil {
		be.Seek(pos)
	}
}

// SeekBy moves relative to the active back-end's position, not before 0.
func (c *Controller) SeekBy(delta time.Duration) {
	be := c.active()
	if be == nil {
		return
	}
	be.Seek(max(0, be.Position()+delta))
}

// SetVolume clamps v to [0,1] and applies it to both back-ends.
func (c *Controller) SetVolume(v float64) {
	v = clampVolume(v)
	c.state.Volume = v
	c.backends.each(func(be Backend) { be.SetVolume(v) })
	c.commit()
}

// ToggleMute flips muted on both back-ends. Volume is left untouched.
func (c *Controller) ToggleMute() {
	c.state.Muted = !c.state.Muted
	muted := c.state.Muted
	c.backends.each(func(be Backend) { be.SetMuted(muted) })
	c.commit()
}

// SetSpeed applies a playback rate multiplier to both back-ends.
// Non-positive rates are ignored.
func (c *Controller) SetSpeed(rate float64) {
	if !(rate > 0) {
		return
	}
	c.state.Speed = rate
	c.backends.each(func(be Backend) { be.SetRate(rate) })
	c.commit()
}

// ToggleShuffle flips the shuffle policy used by Next.
func (c *Controller) ToggleShuffle() {
	c.state.Shuffle = !c.state.Shuffle
	c.commit()
}

// CycleRepeat steps the repeat mode off → all → one → off.
func (c *Controller) CycleRepeat() {
	c.state.Repeat = c.state.Repeat.Next()
	c.commit()
}

// Next advances by policy: repeat-one restarts the current track, shuffle
// picks another random track, otherwise the following track. Wrapping to the
// start with repeat off stops instead.
func (c *Controller) Next() {
	n := c.list.Len()
	if n == 0 {
		return
	}
	if c.state.Repeat == RepeatOne {
		c.restart()
		return
	}

	var idx int
	switch {
	case c.state.Shuffle && n == 1:
		idx = 0
	case c.state.Shuffle:
		idx = c.intn(n - 1)
		if idx >= c.state.CurrentIndex {
			idx++
		}
	default:
		idx = (c.state.CurrentIndex + 1) % n
		if idx == 0 && n > 1 && c.state.Repeat == RepeatOff {
			return
		}
	}
	c.goTo(idx)
}

// Prev restarts the current track when more than three seconds in, otherwise
// steps back one track, wrapping to the end.
func (c *Controller) Prev() {
	n := c.list.Len()
	if n == 0 {
		return
	}
	if be := c.active(); be != nil && be.Position() > restartThreshold {
		be.Seek(0)
		return
	}
	c.goTo((c.state.CurrentIndex - 1 + n) % n)
}

// GoToIndex loads and plays the track at i. Out-of-range indices are ignored.
func (c *Controller) GoToIndex(i int) {
	if i < 0 || i >= c.list.Len() {
		return
	}
	c.goTo(i)
}

func (c *Controller) goTo(i int) {
	t, _ := c.list.Track(i)
	c.state.CurrentIndex = i
	c.loadTrack(t, true)
	c.commit()
}

func (c *Controller) restart() {
	be := c.active()
	if be == nil {
		return
	}
	be.Seek(0)
	be.Play()
}

// RemoveTrack removes the track with id. Removing the current track loads its
// successor (or the new last track) without starting it. Unknown ids are ignored.
func (c *Controller) RemoveTrack(id string) {
	removed, ok := c.list.Track(c.list.IndexOf(id))
	idx := c.list.Remove(id)
	if !ok || idx < 0 {
		return
	}
	cur := c.state.CurrentIndex
	switch {
	case idx < cur:
		c.state.CurrentIndex = cur - 1
	case idx == cur:
		n := c.list.Len()
		if n == 0 {
			c.clearTransport(removed.Kind)
			break
		}
		c.state.CurrentIndex = min(cur, n-1)
		t, _ := c.list.Track(c.state.CurrentIndex)
		c.loadTrack(t, false)
	}
	c.commit()
}

// clearTransport stops playback once the playlist is empty.
func (c *Controller) clearTransport(kind media.Kind) {
	c.token++
	if be := c.backends.For(kind); be != nil {
		be.Stop()
	}
	c.state.CurrentIndex = -1
	c.state.Loading = false
	c.state.Position = 0
	c.state.Duration = 0
	c.setPlaying(false)
}

// ReorderPlaylist moves one track and keeps CurrentIndex on the same track.
func (c *Controller) ReorderPlaylist(from, to int) {
	if !c.list.Move(from, to) {
		return
	}
	c.state.CurrentIndex = playlist.FollowMove(c.state.CurrentIndex, from, to)
	c.commit()
}

// HandleEvent applies a back-end event. It is the only writer of Playing,
// Loading, Position and Duration. Events for superseded loads are dropped.
func (c *Controller) HandleEvent(e Event) {
	if e.Token != c.token {
		c.log.Debug().Stringer("event", e.Kind).Uint64("token", e.Token).Uint64("current", c.token).Msg("Dropped stale event")
		return
	}
	switch e.Kind {
	case EventPlay:
		c.state.Loading = false
		c.setPlaying(true)
	case EventPause:
		c.setPlaying(false)
	case EventTimeUpdate:
		c.state.Position = max(0, e.Position.Seconds())
	case EventDurationChange:
		c.state.Duration = max(0, e.Duration.Seconds())
	case EventWaiting:
		c.state.Loading = true
	case EventCanPlay:
		c.state.Loading = false
	case EventEnded:
		c.setPlaying(false)
		c.Next()
	case EventError:
		c.state.Loading = false
		c.setPlaying(false)
		c.log.Warn().Err(e.Err).Msg("Playback failed")
	}
}

func (c *Controller) setPlaying(playing bool) {
	if c.state.Playing == playing {
		return
	}
	c.state.Playing = playing
	c.publish()
}

func (c *Controller) publish() {
	if c.status == nil {
		return
	}
	st := Status{Playing: c.state.Playing}
	if t, ok := c.list.Track(c.state.CurrentIndex); ok {
		st.TrackName = t.Name
	}
	c.status.Publish(st)
}

// Close releases both back-ends and broadcasts that nothing is playing.
// Calls after the first do nothing.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.token++
	c.backends.each(func(be Backend) { be.Close() })
	c.state.Playing = false
	c.state.Loading = false
	c.publish()
}

func (c *Controller) commit() {
	p := c.Persisted()
	if p.equal(c.saved) {
		return
	}
	c.saved = p
	if c.persister != nil {
		c.persister.Save(p)
	}
}
