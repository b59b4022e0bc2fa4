package engine

import (
	"context"
	"log/slog"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/position"
	"github.com/ivlev/montage/internal/renderer"
	"github.com/ivlev/montage/internal/source"
	"github.com/ivlev/montage/internal/system"
	"github.com/ivlev/montage/internal/video"
)

// ffmpegEncoder adapts video.FFmpegEncoder to Encoder.
type ffmpegEncoder struct {
	*video.FFmpegEncoder
}

func (f ffmpegEncoder) Open(ctx context.Context, out string, p video.StreamParams) (FrameWriter, error) {
	return f.FFmpegEncoder.Open(ctx, out, p)
}

// NewFFmpeg wires the default backend from configuration: frames come from
// a source.Loader, are drawn by renderer.Rasterizer and encoded by ffmpeg.
// An "auto" encoder is resolved by probing ffmpeg.
func NewFFmpeg(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Engine {
	codec := cfg.Render.Encoder
	if codec == "" || codec == "auto" {
		codec = system.BestH264Encoder(ctx, cfg.Render.FFmpegBinary)
	}
	loader := source.NewLoader(cfg.Render.FFmpegBinary, cfg.Render.FFprobeBinary, logger)

	rf := func(assets asset.Lookup, frame position.Size) (Rasterizer, error) {
		return renderer.New(assets, loader, renderer.Options{
			Frame:       frame,
			Background:  cfg.Render.Background,
			Text:        cfg.Subtitles.Style(),
			HighQuality: cfg.Render.Scaling == "catmull-rom",
			Logger:      logger,
		})
	}

	return New(ffmpegEncoder{&video.FFmpegEncoder{Binary: cfg.Render.FFmpegBinary}}, rf, Options{
		Workers:   cfg.Render.Workers,
		BatchSize: cfg.Render.BatchSize,
		Codec:     codec,
		Quality:   cfg.Render.Quality,
		ShowStats: cfg.Render.ShowStats,
		StatsLog:  "benchmark.log",
	}, logger)
}
