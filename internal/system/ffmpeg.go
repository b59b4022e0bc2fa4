package system

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Probe is what montage needs to know about a media file.
type Probe struct {
	Duration float64
	Width    int
	Height   int
	HasAudio bool
	HasVideo bool
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeMedia runs ffprobe against path.
func ProbeMedia(ctx context.Context, binary, path string) (Probe, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Probe{}, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Probe{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Probe{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (Probe, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Probe{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	var p Probe
	if raw.Format.Duration != "" {
		d, err := strconv.ParseFloat(strings.TrimSpace(raw.Format.Duration), 64)
		if err != nil {
			return Probe{}, fmt.Errorf("ffprobe parse duration %q: %w", raw.Format.Duration, err)
		}
		p.Duration = d
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "audio":
			p.HasAudio = true
		case "video":
			if !p.HasVideo {
				p.Width, p.Height = s.Width, s.Height
			}
			p.HasVideo = true
		}
	}
	return p, nil
}

// AudioDuration returns the duration of an audio file in seconds.
func AudioDuration(ctx context.Context, binary, path string) (float64, error) {
	p, err := ProbeMedia(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	if p.Duration <= 0 {
		return 0, fmt.Errorf("ffprobe %s: no duration", path)
	}
	return p.Duration, nil
}

// hardwareEncoders are tried in order before falling back to libx264.
var hardwareEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

// BestH264Encoder picks the first hardware H.264 encoder ffmpeg reports,
// or libx264.
func BestH264Encoder(ctx context.Context, binary string) string {
	if binary == "" {
		binary = "ffmpeg"
	}
	out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, enc := range hardwareEncoders {
		if strings.Contains(listing, enc) {
			return enc
		}
	}
	return "libx264"
}
