package cmd

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/player"
)

type nopBackend struct{ plays int }

func (b *nopBackend) Load(string, uint64)     {}
func (b *nopBackend) Play()                   { b.plays++ }
func (b *nopBackend) Pause()                  {}
func (b *nopBackend) Stop()                   {}
func (b *nopBackend) Paused() bool            { return b.plays == 0 }
func (b *nopBackend) Seek(time.Duration)      {}
func (b *nopBackend) Position() time.Duration { return 0 }
func (b *nopBackend) SetVolume(float64)       {}
func (b *nopBackend) SetMuted(bool)           {}
func (b *nopBackend) SetRate(float64)         {}
func (b *nopBackend) Close()                  {}

// syncBuffer lets the test read what the serve loop writes concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeAppliesHostMessagesUntilInputEnds(t *testing.T) {
	audio := &nopBackend{}
	emitter := host.NewEmitter()
	ctrl := player.New(player.Backends{Audio: audio, Video: &nopBackend{}}, player.WithStatusSink(emitter))

	input := strings.Join([]string{
		`{"type":"addFiles","files":[{"url":"/music/a.mp3","name":"a.mp3"},{"url":"/music/b.mp3","name":"b.mp3"}]}`,
		`not json`,
		`{"type":"next"}`,
		`{"type":"openSettings"}`,
		`{"type":"config","defaultVolume":25}`,
	}, "\n") + "\n"
	var out bytes.Buffer
	bridge := host.NewBridge(strings.NewReader(input), &out, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := serve(ctx, ctrl, make(chan player.Event), emitter, bridge, zerolog.Nop()); err != nil {
		t.Fatalf("serve: %v", err)
	}

	st := ctrl.State()
	if len(st.Playlist) != 2 || st.CurrentIndex != 1 {
		t.Fatalf("unexpected state after serve: %d tracks, index %d", len(st.Playlist), st.CurrentIndex)
	}
	if st.Volume != 0.25 {
		t.Fatalf("expected config volume 0.25, got %v", st.Volume)
	}
	if audio.plays != 2 {
		t.Fatalf("expected two autoplays, got %d", audio.plays)
	}

	sc := bufio.NewScanner(&out)
	if !sc.Scan() {
		t.Fatal("expected output")
	}
	first, err := host.Decode(sc.Bytes())
	if err != nil || first.Type != host.TypeRequestConfig {
		t.Fatalf("expected requestConfig first, got %q (%v)", sc.Text(), err)
	}
}

func TestServeForwardsStatusUpdates(t *testing.T) {
	audio := &nopBackend{}
	emitter := host.NewEmitter()
	ctrl := player.New(player.Backends{Audio: audio}, player.WithStatusSink(emitter))
	ctrl.AddFiles([]player.FileRef{{Locator: "/music/a.mp3", Name: "a.mp3"}})

	events := make(chan player.Event, 1)
	events <- player.Event{Kind: player.EventPlay, Token: 1}

	pr, pw := io.Pipe()
	var out syncBuffer
	bridge := host.NewBridge(pr, &out, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ctrl, events, emitter, bridge, zerolog.Nop()) }()

	deadline := time.After(3 * time.Second)
	for !strings.Contains(out.String(), `"statusUpdate"`) {
		select {
		case <-deadline:
			t.Fatalf("expected a statusUpdate, got %q", out.String())
		case <-time.After(10 * time.Millisecond):
		}
	}
	pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.Contains(out.String(), `"playing":true`) || !strings.Contains(out.String(), `"trackName":"a"`) {
		t.Fatalf("unexpected status output %q", out.String())
	}
}
