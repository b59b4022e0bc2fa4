// Package engine renders a resolved plan into a video file: frames are
// rasterized in parallel batches, streamed to the encoder in grid order and
// finally muxed with the mixed audio track.
package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/compose"
	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/position"
	"github.com/ivlev/montage/internal/system"
	"github.com/ivlev/montage/internal/video"
)

const defaultBatchSize = 32

// Backend turns a plan into an encoded media file.
type Backend interface {
	Render(ctx context.Context, plan *compose.Plan, assets asset.Lookup, output string) error
}

// Rasterizer draws one frame instruction into dst.
type Rasterizer interface {
	Rasterize(ctx context.Context, dst *image.RGBA, fi compose.FrameInstruction) error
}

// RasterizerFactory builds a rasterizer for the assets of one render.
type RasterizerFactory func(assets asset.Lookup, frame position.Size) (Rasterizer, error)

// FrameWriter accepts frames in presentation order.
type FrameWriter interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// Encoder produces the video stream and the final container.
type Encoder interface {
	Open(ctx context.Context, out string, p video.StreamParams) (FrameWriter, error)
	MuxAudio(ctx context.Context, videoPath, out string, inputs []video.AudioInput, duration float64) error
}

// Options tunes a render.
type Options struct {
	Workers   int    // concurrent rasterizers, 0 = system.Workers()
	BatchSize int    // frames rasterized before writing, 0 = 32
	Codec     string // resolved encoder name, e.g. libx264
	Quality   int
	ShowStats bool
	StatsLog  string // appended to when ShowStats is set; empty disables
}

// Engine is the FFmpeg-backed Backend.
type Engine struct {
	encoder    Encoder
	rasterizer RasterizerFactory
	opts       Options
	logger     *slog.Logger
	pool       *system.ImagePool
}

// New creates an engine.
func New(enc Encoder, rf RasterizerFactory, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = system.Workers()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Engine{encoder: enc, rasterizer: rf, opts: opts, logger: logger, pool: system.NewImagePool()}
}

// Render implements Backend.
func (e *Engine) Render(ctx context.Context, plan *compose.Plan, assets asset.Lookup, output string) error {
	_, err := e.RenderWithStats(ctx, plan, assets, output)
	return err
}

// RenderWithStats renders like Render and reports where the time went.
func (e *Engine) RenderWithStats(ctx context.Context, plan *compose.Plan, assets asset.Lookup, output string) (Stats, error) {
	stats := Stats{Frames: len(plan.Frames), Duration: plan.Duration}
	start := time.Now()

	if len(plan.Frames) == 0 {
		return stats, fmt.Errorf("%w: nothing to render, the timeline is empty", errs.ErrInvalidConfig)
	}
	inputs, err := audioInputs(plan.Audio, assets)
	if err != nil {
		return stats, err
	}
	raster, err := e.rasterizer(assets, plan.Project.Frame())
	if err != nil {
		return stats, err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return stats, err
	}
	tempDir, err := os.MkdirTemp("", "montage_")
	if err != nil {
		return stats, err
	}
	defer os.RemoveAll(tempDir)

	videoPath := output
	if len(inputs) > 0 {
		videoPath = filepath.Join(tempDir, "video.mp4")
	}

	e.logger.Info("[*] rendering",
		"output", output,
		"frames", len(plan.Frames),
		"resolution", fmt.Sprintf("%dx%d", plan.Project.Width, plan.Project.Height),
		"fps", plan.Project.FPS,
		"encoder", e.opts.Codec,
		"workers", e.opts.Workers)

	stream, err := e.encoder.Open(ctx, videoPath, video.StreamParams{
		Width:   plan.Project.Width,
		Height:  plan.Project.Height,
		FPS:     plan.Project.FPS,
		Encoder: e.opts.Codec,
		Quality: e.opts.Quality,
	})
	if err != nil {
		return stats, err
	}
	if err := e.writeFrames(ctx, raster, stream, plan, &stats); err != nil {
		_ = stream.Close()
		return stats, err
	}
	if err := stream.Close(); err != nil {
		return stats, err
	}

	if len(inputs) > 0 {
		e.logger.Info("[*] mixing audio", "clips", len(inputs))
		muxStart := time.Now()
		if err := e.encoder.MuxAudio(ctx, videoPath, output, inputs, plan.Duration); err != nil {
			return stats, err
		}
		stats.Mux = time.Since(muxStart)
	}

	stats.Total = time.Since(start)
	if mem, err := system.MemoryStats(); err == nil {
		stats.Memory = mem
	}
	e.report(output, stats)
	return stats, nil
}

// writeFrames rasterizes batches concurrently and writes each batch in grid
// order before starting the next, so at most one batch of buffers is alive.
func (e *Engine) writeFrames(ctx context.Context, raster Rasterizer, w FrameWriter, plan *compose.Plan, stats *Stats) error {
	size := image.Pt(plan.Project.Width, plan.Project.Height)
	total := len(plan.Frames)
	batch := make([]*image.RGBA, e.opts.BatchSize)
	progressStep := max(1, total/10)

	for first := 0; first < total; first += e.opts.BatchSize {
		n := min(e.opts.BatchSize, total-first)

		rasterStart := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		for i := range n {
			buf := e.pool.Get(size)
			batch[i] = buf
			fi := plan.Frames[first+i]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return raster.Rasterize(gctx, buf, fi)
			})
		}
		err := g.Wait()
		stats.Rasterize += time.Since(rasterStart)
		if err != nil {
			e.release(batch[:n])
			return err
		}

		writeStart := time.Now()
		for i := range n {
			if err := w.WriteFrame(batch[i]); err != nil {
				e.release(batch[:n])
				return err
			}
			if done := first + i + 1; done%progressStep == 0 || done == total {
				e.logger.Info("[>] frames ready", "done", done, "total", total)
			}
		}
		stats.Encode += time.Since(writeStart)
		e.release(batch[:n])
	}
	return nil
}

func (e *Engine) release(bufs []*image.RGBA) {
	for i, b := range bufs {
		e.pool.Put(b)
		bufs[i] = nil
	}
}

// audioInputs resolves the audio plan against asset sources.
func audioInputs(clips []compose.AudioClip, assets asset.Lookup) ([]video.AudioInput, error) {
	inputs := make([]video.AudioInput, 0, len(clips))
	for _, c := range clips {
		a, err := assets.Get(c.AssetID)
		if err != nil {
			return nil, fmt.Errorf("%w: audio clip %s: %w", errs.ErrDanglingReference, c.RefID, err)
		}
		inputs = append(inputs, video.AudioInput{
			Path:         a.Source,
			Offset:       c.Offset,
			SourceOffset: c.SourceOffset,
			Duration:     c.Duration,
			Volume:       c.Volume,
		})
	}
	return inputs, nil
}
