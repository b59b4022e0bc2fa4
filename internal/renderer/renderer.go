// Package renderer rasterizes resolved frame instructions into RGBA frames.
package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/compose"
	"github.com/ivlev/montage/internal/position"
)

// FrameSource decodes the pixels of image and video assets.
type FrameSource interface {
	Frame(ctx context.Context, a asset.Asset, sourceTime float64) (image.Image, error)
}

// Options configures a Rasterizer.
type Options struct {
	Frame       position.Size
	Background  string          // color, default black
	Text        asset.TextStyle // defaults for text and subtitle assets
	HighQuality bool            // Catmull-Rom instead of bilinear scaling
	Logger      *slog.Logger
}

// Rasterizer draws frame instructions. It is safe for concurrent use when
// its FrameSource is.
type Rasterizer struct {
	assets     asset.Lookup
	frames     FrameSource
	text       *TextRenderer
	frame      position.Size
	background color.RGBA
	scaler     xdraw.Scaler
}

// New creates a Rasterizer drawing assets from lookup.
func New(assets asset.Lookup, frames FrameSource, opts Options) (*Rasterizer, error) {
	bg := color.RGBA{A: 255}
	if opts.Background != "" {
		var err error
		if bg, err = ParseColor(opts.Background); err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
	}
	var scaler xdraw.Scaler = xdraw.ApproxBiLinear
	if opts.HighQuality {
		scaler = xdraw.CatmullRom
	}
	return &Rasterizer{
		assets:     assets,
		frames:     frames,
		text:       NewTextRenderer(opts.Text, opts.Frame.W, opts.Logger),
		frame:      opts.Frame,
		background: bg,
		scaler:     scaler,
	}, nil
}

// Sizer reports natural content sizes for placement: measured text for text
// kinds, intrinsic size shrunk to fit the frame for the rest, the frame when
// unknown.
func (r *Rasterizer) Sizer() compose.ContentSizer {
	return func(a asset.Asset, style *asset.TextStyle) position.Size {
		if a.Kind == asset.KindText || a.Kind == asset.KindSubtitle {
			return r.text.Measure(a, style)
		}
		return fitWithin(a.Size(), r.frame)
	}
}

// fitWithin scales s down, keeping its aspect ratio, until it fits frame.
func fitWithin(s, frame position.Size) position.Size {
	if s.W <= 0 || s.H <= 0 {
		return frame
	}
	scale := min(1, float64(frame.W)/float64(s.W), float64(frame.H)/float64(s.H))
	return position.Size{W: position.Round(float64(s.W) * scale), H: position.Round(float64(s.H) * scale)}
}

// Rasterize clears dst to the background and draws the layers of fi bottom
// to top.
func (r *Rasterizer) Rasterize(ctx context.Context, dst *image.RGBA, fi compose.FrameInstruction) error {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	for _, l := range fi.Layers {
		if l.Opacity <= 0 || l.Rect.W <= 0 || l.Rect.H <= 0 {
			continue
		}
		src, err := r.layerImage(ctx, l)
		if err != nil {
			return fmt.Errorf("frame %d layer %s: %w", fi.Index, l.RefID, err)
		}

		dr := image.Rect(l.Rect.X, l.Rect.Y, l.Rect.X+l.Rect.W, l.Rect.Y+l.Rect.H)
		if !dr.Overlaps(dst.Bounds()) {
			continue
		}
		if l.Opacity >= 1 {
			r.scaler.Scale(dst, dr, src, src.Bounds(), draw.Over, nil)
			continue
		}

		scaled := image.NewRGBA(image.Rect(0, 0, dr.Dx(), dr.Dy()))
		r.scaler.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
		mask := image.NewUniform(color.Alpha16{A: uint16(l.Opacity * 0xffff)})
		draw.DrawMask(dst, dr, scaled, image.Point{}, mask, image.Point{}, draw.Over)
	}
	return nil
}

func (r *Rasterizer) layerImage(ctx context.Context, l compose.Layer) (image.Image, error) {
	a, err := r.assets.Get(l.AssetID)
	if err != nil {
		return nil, err
	}
	switch a.Kind {
	case asset.KindText, asset.KindSubtitle:
		return r.text.Render(a, l.Style)
	default:
		return r.frames.Frame(ctx, a, l.SourceTime)
	}
}
