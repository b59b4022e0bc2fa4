package video

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// AudioInput is one clip of the output soundtrack.
type AudioInput struct {
	Path         string
	Offset       float64 // project seconds
	SourceOffset float64 // seconds into Path
	Duration     float64
	Volume       float64
}

// MuxAudio copies the video stream of videoPath into out and adds a
// soundtrack mixed from inputs, trimmed to duration.
func (e *FFmpegEncoder) MuxAudio(ctx context.Context, videoPath, out string, inputs []AudioInput, duration float64) error {
	if len(inputs) == 0 {
		return fmt.Errorf("mux %s: no audio inputs", out)
	}
	cmd := exec.CommandContext(ctx, e.binary(), muxArgs(videoPath, out, inputs, duration)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux error: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func muxArgs(videoPath, out string, inputs []AudioInput, duration float64) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", videoPath}
	for _, in := range inputs {
		args = append(args, "-i", in.Path)
	}
	args = append(args,
		"-filter_complex", audioGraph(inputs),
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", seconds(duration),
		out,
	)
	return args
}

// audioGraph trims each input to its window, sets its volume, delays it to
// its offset and mixes everything without level normalization.
func audioGraph(inputs []AudioInput) string {
	var b strings.Builder
	for i, in := range inputs {
		delay := int64(math.Round(in.Offset * 1000))
		fmt.Fprintf(&b, "[%d:a]atrim=start=%s:duration=%s,asetpts=PTS-STARTPTS,volume=%s,adelay=delays=%d:all=1[a%d];",
			i+1, seconds(in.SourceOffset), seconds(in.Duration), strconv.FormatFloat(in.Volume, 'f', -1, 64), delay, i)
	}
	for i := range inputs {
		fmt.Fprintf(&b, "[a%d]", i)
	}
	fmt.Fprintf(&b, "amix=inputs=%d:duration=longest:normalize=0[aout]", len(inputs))
	return b.String()
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
