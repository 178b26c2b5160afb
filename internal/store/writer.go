package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/player"
)

const writeTimeout = 5 * time.Second

// Writer persists player state in the background. Only the latest pending
// snapshot is kept, so a burst of changes costs a single write.
type Writer struct {
	store *Store
	log   zerolog.Logger

	mu      sync.Mutex
	pending *player.Persisted
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewWriter starts a writer for s.
func NewWriter(s *Store, log zerolog.Logger) *Writer {
	w := &Writer{
		store: s,
		log:   log.With().Str("component", "store").Logger(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Save queues p, replacing any snapshot not yet written. It never blocks.
func (w *Writer) Save(p player.Persisted) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = &p
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) take() (*player.Persisted, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.pending
	w.pending = nil
	return p, w.closed
}

func (w *Writer) run() {
	defer close(w.done)
	for range w.wake {
		p, closed := w.take()
		if p != nil {
			w.write(*p)
		}
		if closed {
			return
		}
	}
}

func (w *Writer) write(p player.Persisted) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.store.SaveState(ctx, p); err != nil {
		w.log.Error().Err(err).Msg("Failed to persist player state")
		return
	}
	w.log.Debug().Int("tracks", len(p.Playlist)).Msg("Persisted player state")
}

// Close writes any pending snapshot and stops the writer.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	// The wake slot may already be full; either way run sees closed.
	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}
