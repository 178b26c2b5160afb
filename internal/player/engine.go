package player

import (
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/media"
)

const (
	outputSampleRate  = 44100
	outputChannels    = 2
	outputFrameSize   = outputChannels * 2 // 16-bit
	outputBytesPerSec = outputSampleRate * outputFrameSize

	tickInterval = 250 * time.Millisecond
)

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   outputSampleRate,
			ChannelCount: outputChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// countingReader tracks how many decoded bytes have been consumed.
type countingReader struct {
	reader io.Reader
	pos    int64
	mu     sync.Mutex
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	cr.mu.Unlock()
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

func (cr *countingReader) SetPos(pos int64) {
	cr.mu.Lock()
	cr.pos = pos
	cr.mu.Unlock()
}

// lockedReader serialises reads from the output device against seeks.
type lockedReader struct {
	mu     *sync.Mutex
	source io.Reader
}

func (r *lockedReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source.Read(p)
}

func alignFrame(pos, frameSize int64) int64 {
	return pos - pos%frameSize
}

// clampSeekByteOffset converts a target time to a frame-aligned byte offset
// within [0, total]. A negative total means the length is unknown.
func clampSeekByteOffset(pos time.Duration, bytesPerSec, total, frameSize int64) int64 {
	off := int64(pos.Seconds() * float64(bytesPerSec))
	off = max(off, 0)
	if total >= 0 {
		off = min(off, total)
	}
	return alignFrame(off, frameSize)
}

// ResolveLocator turns a track locator into a path or URL that a decoder can
// open, and reports whether it is remote.
func ResolveLocator(locator string) (target string, remote bool) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return locator, false
	}
	switch u.Scheme {
	case "http", "https":
		return locator, true
	case "file":
		return u.Path, false
	}
	return locator, false
}

// opener turns a locator into a decoder.
type opener func(locator string) (audioDecoder, error)

func openAudio(locator string) (audioDecoder, error) {
	target, remote := ResolveLocator(locator)
	if remote {
		return openRemote(target)
	}
	if canDecodeNatively(media.Ext(target)) {
		return newNativeDecoder(target)
	}
	return openFFmpeg(target)
}

func openVideo(locator string) (audioDecoder, error) {
	target, remote := ResolveLocator(locator)
	if remote {
		return openRemote(target)
	}
	return openFFmpeg(target)
}

func openFFmpeg(input string) (audioDecoder, error) {
	d, err := newFFmpegDecoder(input)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// openRemote prefers a seekable ffmpeg decode and falls back to a live stream
// when the remote length is unknown.
func openRemote(u string) (audioDecoder, error) {
	if d, err := newFFmpegDecoder(u); err == nil {
		if d.Length() > 0 {
			return d, nil
		}
		_ = d.Close()
	}
	d, err := newStreamDecoder(u)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// source is one loaded media source and its output pipeline.
type source struct {
	dec      audioDecoder
	counter  *countingReader
	rate     *rateReader
	pipeline io.Reader
	readMu   sync.Mutex
	out      *oto.Player
	bps      int64 // decoded bytes per second
	frame    int64
	stop     chan struct{}
	ended    bool
}

func (s *source) position() time.Duration {
	return time.Duration(float64(s.counter.Pos()) / float64(s.bps) * float64(time.Second))
}

func (s *source) duration() time.Duration {
	if s.dec.Length() < 0 {
		return 0
	}
	return time.Duration(float64(s.dec.Length()) / float64(s.bps) * float64(time.Second))
}

// Engine is a Backend that decodes a source and plays it through the shared
// oto context. Commands return at once; results arrive as events.
type Engine struct {
	name string
	open opener
	emit EventSink
	tap  *Tap
	log  zerolog.Logger

	mu       sync.Mutex
	ctx      *oto.Context
	src      *source
	token    uint64
	volume   float64
	muted    bool
	rate     float64
	wantPlay bool
	playing  bool
	closed   bool
}

// NewAudioEngine creates the back-end for audio tracks. Its output is copied
// into tap when tap is non-nil.
func NewAudioEngine(emit EventSink, tap *Tap, log zerolog.Logger) *Engine {
	return newEngine("audio", openAudio, emit, tap, log)
}

// NewVideoEngine creates the back-end for video tracks. Only the audio stream
// is played.
func NewVideoEngine(emit EventSink, log zerolog.Logger) *Engine {
	return newEngine("video", openVideo, emit, nil, log)
}

func newEngine(name string, open opener, emit EventSink, tap *Tap, log zerolog.Logger) *Engine {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Engine{
		name:   name,
		open:   open,
		emit:   emit,
		tap:    tap,
		log:    log.With().Str("component", "engine").Str("backend", name).Logger(),
		volume: 1,
		rate:   1,
	}
}

// Load replaces the current source. Decoding starts in the background.
func (e *Engine) Load(locator string, token uint64) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.release()
	e.token = token
	e.wantPlay = false
	e.playing = false
	e.mu.Unlock()

	e.emit(Event{Kind: EventWaiting, Token: token})
	go e.attach(locator, token)
}

func (e *Engine) attach(locator string, token uint64) {
	dec, err := e.open(locator)
	var ctx *oto.Context
	if err == nil {
		ctx, err = initOto()
	}

	e.mu.Lock()
	if e.closed || e.token != token {
		e.mu.Unlock()
		if dec != nil {
			closeDecoder(dec)
		}
		return
	}
	if err != nil {
		e.mu.Unlock()
		if dec != nil {
			closeDecoder(dec)
		}
		e.log.Warn().Err(err).Str("locator", locator).Msg("Failed to open source")
		e.emit(Event{Kind: EventError, Token: token, Err: err})
		return
	}

	e.ctx = ctx
	src := e.newSource(dec)
	e.src = src
	play := e.wantPlay
	dur := src.duration()
	e.mu.Unlock()

	if dur > 0 {
		e.emit(Event{Kind: EventDurationChange, Token: token, Duration: dur})
	}
	e.emit(Event{Kind: EventCanPlay, Token: token})
	go e.monitor(src, token)
	if play {
		e.Play()
	}
}

// newSource builds the decode pipeline. Callers hold e.mu.
func (e *Engine) newSource(dec audioDecoder) *source {
	channels := max(dec.ChannelCount(), 1)
	src := &source{
		dec:     dec,
		counter: &countingReader{reader: dec},
		bps:     int64(dec.SampleRate() * channels * 2),
		frame:   int64(channels * 2),
		stop:    make(chan struct{}),
	}
	src.rate = newRateReader(src.counter, dec.SampleRate(), channels)
	src.rate.setRate(e.rate)
	src.pipeline = &lockedReader{mu: &src.readMu, source: &tapReader{source: src.rate, tap: e.tap}}
	src.out = e.ctx.NewPlayer(src.pipeline)
	src.out.SetVolume(e.gain())
	return src
}

func (e *Engine) gain() float64 {
	if e.muted {
		return 0
	}
	return e.volume
}

// release tears down the current source. Callers hold e.mu.
func (e *Engine) release() {
	src := e.src
	if src == nil {
		return
	}
	e.src = nil
	close(src.stop)
	src.out.Pause()
	closeDecoder(src.dec)
	if e.tap != nil {
		e.tap.Clear()
	}
}

// Play starts or resumes output. Before the source is attached the request
// is remembered.
func (e *Engine) Play() {
	e.mu.Lock()
	src := e.src
	if src == nil {
		e.wantPlay = true
		e.mu.Unlock()
		return
	}
	if e.playing {
		e.mu.Unlock()
		return
	}
	if src.ended {
		e.seekLocked(src, 0)
	}
	src.out.Play()
	e.playing = true
	token := e.token
	e.mu.Unlock()

	e.emit(Event{Kind: EventPlay, Token: token})
}

// Pause halts output, keeping the position.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.wantPlay = false
	if e.src == nil || !e.playing {
		e.mu.Unlock()
		return
	}
	e.src.out.Pause()
	e.playing = false
	token := e.token
	e.mu.Unlock()

	e.emit(Event{Kind: EventPause, Token: token})
}

// Paused reports whether output is neither running nor requested for the
// source being opened.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.playing && !e.wantPlay
}

// Stop releases the source so the engine sits idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	wasPlaying := e.playing
	token := e.token
	e.release()
	e.token++
	e.playing = false
	e.wantPlay = false
	e.mu.Unlock()

	if wasPlaying {
		e.emit(Event{Kind: EventPause, Token: token})
	}
}

// Seek moves to pos, clamped to the source length.
func (e *Engine) Seek(pos time.Duration) {
	e.mu.Lock()
	src := e.src
	if src == nil {
		e.mu.Unlock()
		return
	}
	ok := e.seekLocked(src, pos)
	at := src.position()
	token := e.token
	e.mu.Unlock()

	if ok {
		e.emit(Event{Kind: EventTimeUpdate, Token: token, Position: at})
	}
}

// seekLocked repositions the decoder and rebuilds the device player to flush
// its buffer. Callers hold e.mu.
func (e *Engine) seekLocked(src *source, pos time.Duration) bool {
	off := clampSeekByteOffset(pos, src.bps, src.dec.Length(), src.frame)

	src.readMu.Lock()
	_, err := src.dec.Seek(off, io.SeekStart)
	if err == nil {
		src.counter.SetPos(off)
		src.rate.reset(src.counter)
	}
	src.readMu.Unlock()
	if err != nil {
		if !errors.Is(err, errNotSeekable) {
			e.log.Warn().Err(err).Dur("pos", pos).Msg("Seek failed")
		}
		return false
	}

	src.out.Pause()
	src.out = e.ctx.NewPlayer(src.pipeline)
	src.out.SetVolume(e.gain())
	if e.playing {
		src.out.Play()
	}
	src.ended = false
	if e.tap != nil {
		e.tap.Clear()
	}
	return true
}

// Position reports the current playback position.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.src == nil {
		return 0
	}
	return e.src.position()
}

// SetVolume sets the output gain in [0,1].
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clampVolume(v)
	if e.src != nil {
		e.src.out.SetVolume(e.gain())
	}
}

// SetMuted silences output without touching the volume.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	if e.src != nil {
		e.src.out.SetVolume(e.gain())
	}
}

// SetRate sets the playback rate multiplier.
func (e *Engine) SetRate(rate float64) {
	if !(rate > 0) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	if e.src != nil {
		e.src.rate.setRate(rate)
	}
}

// Close releases the source. The engine ignores commands afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.playing = false
	e.release()
}

// monitor reports progress while src is current and detects the end of it.
func (e *Engine) monitor(src *source, token uint64) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-src.stop:
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		if e.src != src {
			e.mu.Unlock()
			return
		}
		playing := e.playing
		finished := playing && !src.out.IsPlaying()
		if finished {
			if err := src.out.Err(); err != nil {
				e.log.Debug().Err(err).Msg("Output stopped with error")
			}
			src.ended = true
			e.playing = false
		}
		pos := src.position()
		e.mu.Unlock()

		switch {
		case finished:
			e.emit(Event{Kind: EventTimeUpdate, Token: token, Position: pos})
			e.emit(Event{Kind: EventPause, Token: token})
			e.emit(Event{Kind: EventEnded, Token: token})
		case playing:
			e.emit(Event{Kind: EventTimeUpdate, Token: token, Position: pos})
		}
	}
}
