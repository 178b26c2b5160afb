package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

var errFFmpegNotFound = errors.New("ffmpeg not found (required for video and container playback)")

// ffmpegDecoder extracts the first audio stream of anything ffmpeg can read,
// resampled to the output format. Seeking restarts the process with -ss.
type ffmpegDecoder struct {
	input    string
	total    int64
	duration time.Duration

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc
	pos    int64
	closed bool
}

type ffprobeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func newFFmpegDecoder(input string) (*ffmpegDecoder, error) {
	dur, err := probeDuration(input)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", input, err)
	}
	d := &ffmpegDecoder{
		input:    input,
		duration: dur,
		total:    -1,
	}
	if dur > 0 {
		d.total = alignFrame(int64(dur.Seconds()*outputBytesPerSec), outputFrameSize)
	}
	if err := d.start(0); err != nil {
		return nil, err
	}
	return d, nil
}

// probeDuration asks ffprobe for the container duration. Zero means unknown.
func probeDuration(input string) (time.Duration, error) {
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0, errors.New("ffprobe not found (required for video and container playback)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		"-select_streams", "a:0",
		input,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var res ffprobeResult
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	if len(res.Streams) == 0 {
		return 0, errors.New("no audio stream found")
	}
	secs, err := strconv.ParseFloat(res.Format.Duration, 64)
	if err != nil || secs <= 0 {
		return 0, nil
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (d *ffmpegDecoder) start(from int64) error {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return errFFmpegNotFound
	}
	d.stop()

	args := []string{"-nostdin", "-v", "quiet"}
	if from > 0 {
		args = append(args, "-ss", formatSeekTime(float64(from)/outputBytesPerSec))
	}
	args = append(args,
		"-i", d.input,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(outputSampleRate),
		"-ac", strconv.Itoa(outputChannels),
		"pipe:1",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("setting up ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	d.cmd = cmd
	d.stdout = stdout
	d.cancel = cancel
	d.pos = from
	return nil
}

func (d *ffmpegDecoder) stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.cmd != nil {
		_ = d.cmd.Wait()
		d.cmd = nil
	}
	d.stdout = nil
}

func (d *ffmpegDecoder) Read(p []byte) (int, error) {
	d.mu.Lock()
	stdout := d.stdout
	d.mu.Unlock()
	if stdout == nil {
		return 0, io.EOF
	}

	n, err := stdout.Read(p)

	d.mu.Lock()
	d.pos += int64(n)
	d.mu.Unlock()
	return n, err
}

func (d *ffmpegDecoder) Seek(offset int64, whence int) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return d.pos, errors.New("decoder closed")
	}

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = d.pos + offset
	case io.SeekEnd:
		if d.total < 0 {
			return d.pos, errNotSeekable
		}
		pos = d.total + offset
	}
	pos = max(pos, 0)
	if d.total >= 0 {
		pos = min(pos, d.total)
	}
	pos = alignFrame(pos, outputFrameSize)

	if err := d.start(pos); err != nil {
		return d.pos, err
	}
	return pos, nil
}

func (d *ffmpegDecoder) Length() int64     { return d.total }
func (d *ffmpegDecoder) SampleRate() int   { return outputSampleRate }
func (d *ffmpegDecoder) ChannelCount() int { return outputChannels }

func (d *ffmpegDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.stop()
	return nil
}

// formatSeekTime formats seconds as HH:MM:SS.mmm for ffmpeg -ss.
func formatSeekTime(seconds float64) string {
	seconds = max(seconds, 0)
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
