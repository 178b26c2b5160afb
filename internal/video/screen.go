// Package video draws the picture of a video track in the terminal. Frames
// come from an ffmpeg rawvideo pipe and follow the playback position of the
// video back-end.
package video

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

const (
	frameRate = 15
	// maxDrift is how far the clock may move away from the decoded stream
	// before decoding restarts at the clock position.
	maxDrift = 2 * time.Second
)

// startFunc begins decoding input at from as rgb24 frames of g's pixel size.
type startFunc func(input string, from time.Duration, g geometry) (io.ReadCloser, error)

// Screen paints the frame of a video track that matches a playback position.
// Decoding starts lazily on the first Frame call.
type Screen struct {
	input   string
	srcW    int
	srcH    int
	painter *painter
	start   startFunc

	mu     sync.Mutex
	geo    geometry
	stream io.ReadCloser
	buf    []byte
	origin time.Duration // position of frame 0 in stream
	index  int64         // frames read from stream, minus one
	eof    bool
	last   string
	closed bool
}

// Open probes input and prepares a screen of at most cols x rows cells.
func Open(ctx context.Context, input string, cols, rows int) (*Screen, error) {
	w, h, err := probeSize(ctx, input)
	if err != nil {
		return nil, err
	}
	return newScreen(input, w, h, newPainter(termenv.EnvColorProfile()), startFFmpeg, cols, rows), nil
}

func newScreen(input string, srcW, srcH int, p *painter, start startFunc, cols, rows int) *Screen {
	s := &Screen{input: input, srcW: srcW, srcH: srcH, painter: p, start: start, index: -1}
	s.geo = fit(cols, rows, srcW, srcH, p.halfBlocks())
	return s
}

// Frame returns the painted frame for pos. When no new frame is available
// the previous one is returned.
func (s *Screen) Frame(pos time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.geo.cols == 0 {
		return "", nil
	}
	if s.stream != nil && s.drifted(pos) {
		s.stop()
	}
	if s.stream == nil {
		if err := s.restart(pos); err != nil {
			return s.last, err
		}
	}

	target := int64((pos - s.origin).Seconds() * frameRate)
	advanced := false
	for !s.eof && s.index < target {
		if _, err := io.ReadFull(s.stream, s.buf); err != nil {
			s.eof = true
			break
		}
		s.index++
		advanced = true
	}
	if advanced {
		s.last = s.painter.paint(s.buf, s.geo)
	}
	return s.last, nil
}

func (s *Screen) shown() time.Duration {
	return s.origin + time.Duration(s.index)*time.Second/frameRate
}

func (s *Screen) drifted(pos time.Duration) bool {
	shown := s.shown()
	if s.eof && pos >= shown {
		return false
	}
	return pos < shown-maxDrift/2 || pos > shown+maxDrift
}

func (s *Screen) restart(pos time.Duration) error {
	stream, err := s.start(s.input, pos, s.geo)
	if err != nil {
		return err
	}
	s.stream = stream
	if len(s.buf) != s.geo.frameBytes() {
		s.buf = make([]byte, s.geo.frameBytes())
	}
	s.origin = pos
	s.index = -1
	s.eof = false
	return nil
}

func (s *Screen) stop() {
	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}
}

// Resize refits the picture. Decoding restarts on the next Frame call when
// the pixel size changes.
func (s *Screen) Resize(cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := fit(cols, rows, s.srcW, s.srcH, s.painter.halfBlocks())
	if g == s.geo {
		return
	}
	s.geo = g
	s.stop()
	s.last = ""
}

// Size reports the painted size in cells.
func (s *Screen) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geo.cols, s.geo.rows
}

func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stop()
	return nil
}

// ffmpegStream is the stdout of a decoding ffmpeg process.
type ffmpegStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func (f *ffmpegStream) Close() error {
	f.cancel()
	_ = f.ReadCloser.Close()
	_ = f.cmd.Wait()
	return nil
}

func startFFmpeg(input string, from time.Duration, g geometry) (io.ReadCloser, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := []string{"-v", "quiet"}
	if from > 0 {
		args = append(args, "-ss", strconv.FormatFloat(from.Seconds(), 'f', 3, 64))
	}
	args = append(args,
		"-i", input,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-vf", fmt.Sprintf("scale=%d:%d,fps=%d", g.pixW, g.pixH, frameRate),
		"pipe:1",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting ffmpeg video decode: %w", err)
	}
	return &ffmpegStream{ReadCloser: stdout, cmd: cmd, cancel: cancel}, nil
}
