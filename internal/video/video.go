// Package video encodes rasterized frames and mixes the audio track with
// ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// StreamParams describes the raw frames fed to the encoder.
type StreamParams struct {
	Width, Height int
	FPS           int
	Encoder       string // libx264, h264_nvenc, h264_videotoolbox
	Quality       int    // 0 selects the encoder default
}

// Stream is a running ffmpeg process accepting raw RGBA frames.
type Stream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	size   image.Point
	frames int
}

// FFmpegEncoder shells out to ffmpeg.
type FFmpegEncoder struct {
	Binary string
}

func (e *FFmpegEncoder) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}

// Open starts an encoder writing H.264 to out.
func (e *FFmpegEncoder) Open(ctx context.Context, out string, p StreamParams) (*Stream, error) {
	s := &Stream{size: image.Pt(p.Width, p.Height)}
	s.cmd = exec.CommandContext(ctx, e.binary(), encodeArgs(out, p)...)
	s.cmd.Stderr = &s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	s.stdin = stdin
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return s, nil
}

// WriteFrame sends one frame. Frames must match the stream size.
func (s *Stream) WriteFrame(img *image.RGBA) error {
	if img.Rect.Size() != s.size {
		return fmt.Errorf("frame %d is %v, stream expects %v", s.frames, img.Rect.Size(), s.size)
	}
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write frame %d: %w: %s", s.frames, err, strings.TrimSpace(s.stderr.String()))
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (s *Stream) Frames() int {
	return s.frames
}

// Close flushes the stream and waits for ffmpeg to finish.
func (s *Stream) Close() error {
	if err := s.stdin.Close(); err != nil {
		return err
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}

func encodeArgs(out string, p StreamParams) []string {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", strconv.Itoa(p.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", p.Encoder,
	}
	args = append(args, qualityArgs(p.Encoder, p.Quality)...)
	return append(args, "-movflags", "+faststart", out)
}

// qualityArgs maps one quality knob onto each encoder's rate control.
func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// No constant-quality mode on every version; quality*100 kbit/s.
		if quality <= 0 {
			quality = 75
		}
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		if quality <= 0 {
			quality = 23
		}
		return []string{"-cq", strconv.Itoa(quality)}
	default: // libx264
		if quality <= 0 {
			quality = 23
		}
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
