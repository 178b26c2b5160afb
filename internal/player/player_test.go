package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func pcm(frames ...[2]int16) []byte {
	out := make([]byte, 0, len(frames)*4)
	for _, f := range frames {
		out = binary.LittleEndian.AppendUint16(out, uint16(f[0]))
		out = binary.LittleEndian.AppendUint16(out, uint16(f[1]))
	}
	return out
}

func readFrames(t *testing.T, r io.Reader, n int) [][2]int16 {
	t.Helper()
	buf := make([]byte, n*4)
	got, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		t.Fatalf("read: %v", err)
	}
	out := make([][2]int16, got/4)
	for i := range out {
		out[i][0] = int16(binary.LittleEndian.Uint16(buf[i*4:]))
		out[i][1] = int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
	}
	return out
}

func TestClampSeekByteOffsetClampsAndAligns(t *testing.T) {
	got := clampSeekByteOffset(3900*time.Millisecond, 10, 10, 4)
	if got != 8 {
		t.Fatalf("expected clamped aligned seek offset 8, got %d", got)
	}

	got = clampSeekByteOffset(-1*time.Second, 10, 100, 4)
	if got != 0 {
		t.Fatalf("expected negative seek to clamp to 0, got %d", got)
	}

	got = clampSeekByteOffset(5*time.Second, 10, -1, 4)
	if got != 48 {
		t.Fatalf("expected unknown length to leave offset unclamped, got %d", got)
	}
}

func TestRateReaderPassesThroughAtUnitRate(t *testing.T) {
	src := pcm([2]int16{1, -1}, [2]int16{2, -2}, [2]int16{3, -3}, [2]int16{4, -4})
	r := newRateReader(bytes.NewReader(src), outputSampleRate, 2)

	got := readFrames(t, r, 4)
	want := [][2]int16{{1, -1}, {2, -2}, {3, -3}, {4, -4}}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRateReaderDoubleSpeedSkipsFrames(t *testing.T) {
	src := pcm([2]int16{0, 0}, [2]int16{10, 10}, [2]int16{20, 20}, [2]int16{30, 30}, [2]int16{40, 40}, [2]int16{50, 50})
	r := newRateReader(bytes.NewReader(src), outputSampleRate, 2)
	r.setRate(2)

	got := readFrames(t, r, 3)
	want := []int16{0, 20, 40}
	if len(got) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(got))
	}
	for i, w := range want {
		if got[i][0] != w {
			t.Fatalf("frame %d: expected %d, got %d", i, w, got[i][0])
		}
	}
}

func TestRateReaderHalfSpeedInterpolates(t *testing.T) {
	src := pcm([2]int16{0, 0}, [2]int16{100, 100}, [2]int16{200, 200})
	r := newRateReader(bytes.NewReader(src), outputSampleRate, 2)
	r.setRate(0.5)

	got := readFrames(t, r, 4)
	want := []int16{0, 50, 100, 150}
	for i, w := range want {
		if got[i][0] != w {
			t.Fatalf("frame %d: expected %d, got %d", i, w, got[i][0])
		}
	}
}

func TestRateReaderUpmixesMonoAndResamples(t *testing.T) {
	mono := make([]byte, 0, 6)
	for _, v := range []int16{0, 100, 200} {
		mono = binary.LittleEndian.AppendUint16(mono, uint16(v))
	}
	r := newRateReader(bytes.NewReader(mono), outputSampleRate/2, 1)

	got := readFrames(t, r, 4)
	want := []int16{0, 50, 100, 150}
	for i, w := range want {
		if got[i][0] != w || got[i][1] != w {
			t.Fatalf("frame %d: expected %d on both channels, got %v", i, w, got[i])
		}
	}
}

func TestRateReaderIgnoresNonPositiveRate(t *testing.T) {
	r := newRateReader(bytes.NewReader(nil), outputSampleRate, 2)
	r.setRate(0)
	r.setRate(-1)
	if r.rate != 1 {
		t.Fatalf("expected rate to stay 1, got %v", r.rate)
	}
}

func TestRateReaderResetRestartsInterpolation(t *testing.T) {
	r := newRateReader(bytes.NewReader(pcm([2]int16{1, 1}, [2]int16{2, 2})), outputSampleRate, 2)
	readFrames(t, r, 1)
	r.reset(bytes.NewReader(pcm([2]int16{9, 9}, [2]int16{8, 8})))
	got := readFrames(t, r, 1)
	if got[0][0] != 9 {
		t.Fatalf("expected first frame of new source, got %v", got[0])
	}
}

func TestTapKeepsMostRecentMonoSamples(t *testing.T) {
	tap := NewTap(3)
	tap.Write(pcm([2]int16{2, 4}, [2]int16{10, 20}))
	tap.Write(pcm([2]int16{-6, -2}, [2]int16{100, 100}))

	got := tap.Samples(10)
	want := []int16{15, -4, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	tap.Clear()
	if got := tap.Samples(3); got != nil {
		t.Fatalf("expected no samples after clear, got %v", got)
	}
}

func TestTapReaderCopiesOutput(t *testing.T) {
	tap := NewTap(8)
	r := &tapReader{source: bytes.NewReader(pcm([2]int16{7, 7})), tap: tap}
	if _, err := io.ReadAll(r); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := tap.Samples(1); len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected tapped sample 7, got %v", got)
	}
}

func TestCountingReaderTracksPosition(t *testing.T) {
	cr := &countingReader{reader: bytes.NewReader(make([]byte, 10))}
	buf := make([]byte, 4)
	_, _ = cr.Read(buf)
	_, _ = cr.Read(buf)
	if cr.Pos() != 8 {
		t.Fatalf("expected 8, got %d", cr.Pos())
	}
	cr.SetPos(2)
	if cr.Pos() != 2 {
		t.Fatalf("expected 2 after SetPos, got %d", cr.Pos())
	}
}

func TestPCMCursorSeekTargets(t *testing.T) {
	c := pcmCursor{pos: 40, total: 100}
	tests := []struct {
		offset int64
		whence int
		want   int64
	}{
		{20, io.SeekStart, 20},
		{-80, io.SeekCurrent, 0},
		{8, io.SeekCurrent, 48},
		{-4, io.SeekEnd, 96},
		{500, io.SeekStart, 100},
	}
	for _, tt := range tests {
		if got := c.target(tt.offset, tt.whence); got != tt.want {
			t.Fatalf("target(%d, %d): expected %d, got %d", tt.offset, tt.whence, tt.want, got)
		}
	}
}

func TestPCMCursorDeliversInPieces(t *testing.T) {
	var c pcmCursor
	p := make([]byte, 3)
	if n := c.deliver(p, []byte{1, 2, 3, 4, 5}); n != 3 {
		t.Fatalf("expected 3 delivered, got %d", n)
	}
	n, ok := c.drain(p)
	if !ok || n != 2 || p[0] != 4 || p[1] != 5 {
		t.Fatalf("expected remaining 4,5, got n=%d ok=%v p=%v", n, ok, p)
	}
	if c.pos != 5 {
		t.Fatalf("expected position 5, got %d", c.pos)
	}
	if _, ok := c.drain(p); ok {
		t.Fatal("expected nothing left to drain")
	}
}

func TestResolveLocator(t *testing.T) {
	tests := []struct {
		in         string
		want       string
		wantRemote bool
	}{
		{"/music/a.mp3", "/music/a.mp3", false},
		{"file:///music/a%20b.mp3", "/music/a b.mp3", false},
		{"https://example.com/live.mp3", "https://example.com/live.mp3", true},
		{`C:\music\a.mp3`, `C:\music\a.mp3`, false},
	}
	for _, tt := range tests {
		got, remote := ResolveLocator(tt.in)
		if got != tt.want || remote != tt.wantRemote {
			t.Fatalf("ResolveLocator(%q) = %q, %v; want %q, %v", tt.in, got, remote, tt.want, tt.wantRemote)
		}
	}
}

func TestFormatSeekTime(t *testing.T) {
	if got := formatSeekTime(3723.5); got != "01:02:03.500" {
		t.Fatalf("unexpected %q", got)
	}
	if got := formatSeekTime(-3); got != "00:00:00.000" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestEngineReportsOpenFailure(t *testing.T) {
	events := make(chan Event, 4)
	boom := errors.New("boom")
	e := newEngine("audio", func(string) (audioDecoder, error) { return nil, boom },
		func(ev Event) { events <- ev }, nil, zerolog.Nop())

	e.Load("/missing.mp3", 7)

	first := <-events
	if first.Kind != EventWaiting || first.Token != 7 {
		t.Fatalf("expected waiting for token 7, got %v/%d", first.Kind, first.Token)
	}
	select {
	case ev := <-events:
		if ev.Kind != EventError || ev.Token != 7 || !errors.Is(ev.Err, boom) {
			t.Fatalf("expected error event, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error event")
	}
}

func TestEngineCommandsWithoutSourceAreSilent(t *testing.T) {
	var got []Event
	e := newEngine("video", openVideo, func(ev Event) { got = append(got, ev) }, nil, zerolog.Nop())

	e.Pause()
	e.Seek(time.Second)
	e.Stop()
	e.SetVolume(0.5)
	e.SetMuted(true)
	e.SetRate(2)

	if len(got) != 0 {
		t.Fatalf("expected no events, got %+v", got)
	}
	if e.Position() != 0 {
		t.Fatalf("expected zero position, got %v", e.Position())
	}
	if e.gain() != 0 {
		t.Fatalf("expected muted gain 0, got %v", e.gain())
	}
	e.SetMuted(false)
	if e.gain() != 0.5 {
		t.Fatalf("expected gain 0.5, got %v", e.gain())
	}
	if e.rate != 2 {
		t.Fatalf("expected rate 2, got %v", e.rate)
	}
}

func TestEnginePausedFollowsRequestedPlay(t *testing.T) {
	e := newEngine("audio", openVideo, nil, nil, zerolog.Nop())
	if !e.Paused() {
		t.Fatal("expected a fresh engine to be paused")
	}
	e.Play()
	if e.Paused() {
		t.Fatal("expected a requested play to count before the source opens")
	}
	e.Pause()
	if !e.Paused() {
		t.Fatal("expected pause to cancel the requested play")
	}
}

func TestEngineIgnoresLoadAfterClose(t *testing.T) {
	called := false
	e := newEngine("audio", func(string) (audioDecoder, error) {
		called = true
		return nil, errors.New("unreachable")
	}, nil, nil, zerolog.Nop())
	e.Close()
	e.Load("/a.mp3", 1)
	time.Sleep(20 * time.Millisecond)
	if called {
		t.Fatal("expected closed engine to ignore Load")
	}
}
