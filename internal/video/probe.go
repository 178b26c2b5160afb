package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const probeTimeout = 10 * time.Second

// ErrNoVideo is returned for inputs without a video stream.
var ErrNoVideo = errors.New("no video stream")

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// probeSize asks ffprobe for the pixel size of the first video stream.
func probeSize(ctx context.Context, input string) (int, int, error) {
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "v:0",
		input,
	).Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (int, int, error) {
	var res probeResult
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	for _, s := range res.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, ErrNoVideo
}
