package player

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// streamDecoder plays a live remote stream through ffmpeg. It has no length
// and cannot seek.
type streamDecoder struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	waitDone  chan struct{}
	closeOnce sync.Once
}

func newStreamDecoder(url string) (*streamDecoder, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, errors.New("ffmpeg not found (required for live stream playback)")
	}

	cmd := exec.Command(
		ffmpeg,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", url,
		"-vn",
		"-ac", strconv.Itoa(outputChannels),
		"-ar", strconv.Itoa(outputSampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("setting up ffmpeg stream: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg stream: %w", err)
	}

	d := &streamDecoder{
		cmd:      cmd,
		stdout:   stdout,
		waitDone: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(d.waitDone)
	}()
	return d, nil
}

func (d *streamDecoder) Read(p []byte) (int, error) {
	return d.stdout.Read(p)
}

func (d *streamDecoder) Seek(int64, int) (int64, error) {
	return 0, errNotSeekable
}

func (d *streamDecoder) Length() int64     { return -1 }
func (d *streamDecoder) SampleRate() int   { return outputSampleRate }
func (d *streamDecoder) ChannelCount() int { return outputChannels }

func (d *streamDecoder) Close() error {
	d.closeOnce.Do(func() {
		_ = d.stdout.Close()
		if d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		<-d.waitDone
	})
	return nil
}
