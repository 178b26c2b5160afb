package player

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"
)

// rateReader converts 16-bit PCM at any sample rate and channel count into
// the output format, stretching or compressing time by the playback rate.
// Frames between source samples are linearly interpolated.
type rateReader struct {
	source   *bufio.Reader
	channels int
	ratio    float64 // source rate / output rate

	mu   sync.Mutex
	rate float64

	frame  []byte
	cur    [2]float64
	next   [2]float64
	frac   float64
	primed bool
	err    error // set once the source is exhausted
}

func newRateReader(source io.Reader, sampleRate, channels int) *rateReader {
	return &rateReader{
		source:   bufio.NewReaderSize(source, 16<<10),
		channels: max(channels, 1),
		ratio:    float64(sampleRate) / outputSampleRate,
		rate:     1,
		frame:    make([]byte, max(channels, 1)*2),
	}
}

func (r *rateReader) setRate(rate float64) {
	if !(rate > 0) {
		return
	}
	r.mu.Lock()
	r.rate = rate
	r.mu.Unlock()
}

// reset drops interpolation state after the source moved.
func (r *rateReader) reset(source io.Reader) {
	r.source.Reset(source)
	r.primed = false
	r.frac = 0
	r.err = nil
}

// readFrame reads one source frame, upmixing mono and dropping channels
// beyond the first two.
func (r *rateReader) readFrame() ([2]float64, error) {
	if _, err := io.ReadFull(r.source, r.frame); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return [2]float64{}, err
	}
	left := float64(int16(binary.LittleEndian.Uint16(r.frame)))
	right := left
	if r.channels > 1 {
		right = float64(int16(binary.LittleEndian.Uint16(r.frame[2:])))
	}
	return [2]float64{left, right}, nil
}

func (r *rateReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	step := r.ratio * r.rate
	r.mu.Unlock()

	n := 0
	for n+outputFrameSize <= len(p) {
		if !r.primed {
			first, err := r.readFrame()
			if err != nil {
				return r.partial(n, err)
			}
			second, err := r.readFrame()
			if err != nil {
				second, r.err = first, err
			}
			r.cur, r.next, r.primed = first, second, true
		}
		for r.frac >= 1 {
			if r.err != nil {
				return r.partial(n, r.err)
			}
			f, err := r.readFrame()
			if err != nil {
				// Hold the last frame so it is still played once.
				f, r.err = r.next, err
			}
			r.cur, r.next = r.next, f
			r.frac--
		}
		for ch := range 2 {
			v := r.cur[ch] + (r.next[ch]-r.cur[ch])*r.frac
			binary.LittleEndian.PutUint16(p[n+ch*2:], uint16(clampInt16(int(v))))
		}
		n += outputFrameSize
		r.frac += step
	}
	return n, nil
}

func (r *rateReader) partial(n int, err error) (int, error) {
	if n > 0 {
		return n, nil
	}
	return 0, err
}
