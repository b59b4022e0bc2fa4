package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
)

// frameArgs builds the ffmpeg arguments that write the frame at t seconds
// of path to stdout as PNG.
func frameArgs(path string, t float64) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(max(0, t), 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}

// ExtractFrame decodes one frame of a video with ffmpeg.
func ExtractFrame(ctx context.Context, binary, path string, t float64) (image.Image, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, frameArgs(path, t)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame %s@%.3f: %w: %s", path, t, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg frame " + path + ": no output")
	}
	return png.Decode(&stdout)
}
