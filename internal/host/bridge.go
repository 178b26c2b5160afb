package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/player"
)

const maxLineSize = 16 << 20 // artwork data URIs make lines large

// Bridge exchanges messages with a host as line-delimited JSON.
type Bridge struct {
	r   io.Reader
	w   io.Writer
	mu  sync.Mutex
	log zerolog.Logger
}

// NewBridge reads host messages from r and writes player messages to w.
func NewBridge(r io.Reader, w io.Writer, log zerolog.Logger) *Bridge {
	return &Bridge{r: r, w: w, log: log.With().Str("component", "bridge").Logger()}
}

// Send writes one message. It is safe to call from any goroutine.
func (b *Bridge) Send(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", m.Type, err)
	}
	data = append(data, '\n')

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.w.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", m.Type, err)
	}
	return nil
}

// Listen reads messages until the input ends or ctx is done. Malformed lines
// are logged and skipped. The returned channel is closed when reading stops.
func (b *Bridge) Listen(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(b.r)
		sc.Buffer(make([]byte, 64<<10), maxLineSize)
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			m, err := Decode(line)
			if err != nil {
				b.log.Warn().Err(err).Msg("Skipping malformed message")
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			b.log.Error().Err(err).Msg("Reading host input failed")
		}
	}()
	return out
}

// Controller is the part of the player a host can drive.
type Controller interface {
	AddFiles(files []player.FileRef)
	TogglePlay()
	Next()
	Prev()
	ApplyConfig(cfg player.Config)
}

// Dispatch applies a host message to c. It reports false for messages the
// controller does not handle, such as openSettings, so the caller can.
func Dispatch(c Controller, m Message) bool {
	switch m.Type {
	case TypeAddFiles:
		c.AddFiles(m.FileRefs())
	case TypeTogglePlay:
		c.TogglePlay()
	case TypeNext:
		c.Next()
	case TypePrev:
		c.Prev()
	case TypeConfig:
		c.ApplyConfig(m.Config())
	default:
		return false
	}
	return true
}
