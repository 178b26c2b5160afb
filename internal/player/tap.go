package player

import (
	"encoding/binary"
	"io"
	"sync"
)

// Tap keeps the most recent output samples, mixed down to mono, for
// frequency analysis. It is safe for concurrent use.
type Tap struct {
	mu   sync.Mutex
	buf  []int16
	w    int
	fill int
}

// NewTap creates a tap holding up to size samples.
func NewTap(size int) *Tap {
	return &Tap{buf: make([]int16, max(size, 1))}
}

// Write appends interleaved stereo 16-bit PCM, overwriting the oldest samples.
func (t *Tap) Write(pcm []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i+outputFrameSize <= len(pcm); i += outputFrameSize {
		l := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		r := int(int16(binary.LittleEndian.Uint16(pcm[i+2:])))
		t.buf[t.w] = int16((l + r) / 2)
		t.w = (t.w + 1) % len(t.buf)
		t.fill = min(t.fill+1, len(t.buf))
	}
}

// Samples returns up to n of the most recent samples, oldest first.
func (t *Tap) Samples(n int) []int16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	n = min(n, t.fill)
	if n <= 0 {
		return nil
	}
	out := make([]int16, n)
	start := (t.w - n + len(t.buf)) % len(t.buf)
	for i := range n {
		out[i] = t.buf[(start+i)%len(t.buf)]
	}
	return out
}

// Clear forgets all samples.
func (t *Tap) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w = 0
	t.fill = 0
}

// tapReader copies everything read through it into a Tap.
type tapReader struct {
	source io.Reader
	tap    *Tap
}

func (r *tapReader) Read(p []byte) (int, error) {
	n, err := r.source.Read(p)
	if n > 0 && r.tap != nil {
		r.tap.Write(p[:n])
	}
	return n, err
}
