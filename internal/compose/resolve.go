// Package compose turns a timeline into a render plan: per-frame layer
// instructions plus an audio mix plan.
package compose

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/effects"
	"github.com/ivlev/montage/internal/position"
	"github.com/ivlev/montage/internal/timeline"
)

// frameEpsilon keeps boundaries like 0.1*30 from flooring to 2.
const frameEpsilon = 1e-6

// ContentSizer reports the natural size of an asset as drawn, used to place
// content whose Position leaves the size open.
type ContentSizer func(a asset.Asset, style *asset.TextStyle) position.Size

type options struct {
	workers int
	sizer   ContentSizer
}

// Option tunes Resolve.
type Option func(*options)

// WithWorkers bounds the number of goroutines computing frames.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithContentSizer replaces the default sizing of assets without intrinsic
// dimensions.
func WithContentSizer(fn ContentSizer) Option {
	return func(o *options) {
		if fn != nil {
			o.sizer = fn
		}
	}
}

// FrameIndex floors t*fps onto the frame grid.
func FrameIndex(t float64, fps int) int {
	return int(math.Floor(t*float64(fps) + frameEpsilon))
}

// firstFrameAt is the first frame whose time is not before t.
func firstFrameAt(t float64, fps int) int {
	return int(math.Ceil(t*float64(fps) - frameEpsilon))
}

// FrameCount is the number of frames of a timeline lasting duration seconds.
func FrameCount(duration float64, fps int) int {
	return FrameIndex(duration, fps)
}

// placed is a validated reference with everything frame-independent
// precomputed.
type placed struct {
	ref        timeline.AssetReference
	asset      asset.Asset
	effects    []effects.Effect
	base       position.Rect
	firstFrame int // first frame with time in [Start, End)
	endFrame   int // exclusive
}

// Resolve computes the render plan of tl. It reads tl and assets only; both
// must not be mutated while it runs. A failed or cancelled resolve returns no
// plan.
func Resolve(ctx context.Context, tl *timeline.Timeline, assets asset.Lookup, cfg config.Project, opts ...Option) (*Plan, error) {
	o := options{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sizer == nil {
		o.sizer = frameSizer(cfg.Frame())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := tl.Validate(assets); err != nil {
		return nil, err
	}

	var visual []placed
	plan := &Plan{Project: cfg, Duration: tl.Duration()}

	for _, ref := range tl.All() {
		a, err := assets.Get(ref.AssetID)
		if err != nil {
			return nil, err
		}
		if a.Kind == asset.KindAudio {
			plan.Audio = append(plan.Audio, AudioClip{
				RefID:        ref.ID,
				AssetID:      ref.AssetID,
				Offset:       ref.Start,
				SourceOffset: ref.SourceOffset(),
				Duration:     ref.Duration(),
				Volume:       ref.Volume(),
			})
			continue
		}

		fx, err := ref.ActiveEffects()
		if err != nil {
			return nil, err
		}
		base, err := position.Resolve(ref.Position, cfg.Frame(), o.sizer(a, ref.Params.Style))
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", ref.ID, err)
		}
		visual = append(visual, placed{
			ref:        ref,
			asset:      a,
			effects:    fx,
			base:       base,
			firstFrame: firstFrameAt(ref.Start, cfg.FPS),
			endFrame:   firstFrameAt(ref.End, cfg.FPS),
		})
	}

	// Stable: equal ranks keep insertion order.
	slices.SortStableFunc(visual, func(a, b placed) int {
		return cmp.Compare(a.ref.Z(), b.ref.Z())
	})

	n := FrameCount(plan.Duration, cfg.FPS)
	plan.Frames = make([]FrameInstruction, n)
	if err := resolveFrames(ctx, plan.Frames, visual, cfg.FPS, o.workers); err != nil {
		return nil, err
	}
	return plan, nil
}

func resolveFrames(ctx context.Context, frames []FrameInstruction, visual []placed, fps, workers int) error {
	n := len(frames)
	if n == 0 {
		return ctx.Err()
	}
	chunk := max(1, (n+workers*4-1)/(workers*4))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				fi, err := resolveFrame(i, visual, fps)
				if err != nil {
					return err
				}
				frames[i] = fi
			}
			return nil
		})
	}
	return g.Wait()
}

func resolveFrame(i int, visual []placed, fps int) (FrameInstruction, error) {
	t := float64(i) / float64(fps)
	fi := FrameInstruction{Index: i, Time: t, Layers: []Layer{}}

	for _, p := range visual {
		if i < p.firstFrame || i >= p.endFrame {
			continue
		}
		// i/fps can land a hair before Start on the first frame.
		local := max(0, t-p.ref.Start)
		tr, err := effects.Apply(p.effects, local, p.base)
		if err != nil {
			return FrameInstruction{}, fmt.Errorf("frame %d, reference %s: %w", i, p.ref.ID, err)
		}
		layer := Layer{
			RefID:     p.ref.ID,
			AssetID:   p.asset.ID,
			Kind:      p.asset.Kind,
			Z:         p.ref.Z(),
			Rect:      tr.Rect,
			Scale:     tr.Scale,
			Opacity:   tr.Opacity,
			LocalTime: local,
			Style:     p.ref.Params.Style,
		}
		if p.asset.Kind == asset.KindVideo {
			layer.SourceTime = p.ref.SourceOffset() + local
		}
		fi.Layers = append(fi.Layers, layer)
	}
	return fi, nil
}

// frameSizer uses intrinsic dimensions when known and the frame size
// otherwise.
func frameSizer(frame position.Size) ContentSizer {
	return func(a asset.Asset, _ *asset.TextStyle) position.Size {
		s := a.Size()
		if s.W <= 0 || s.H <= 0 {
			return frame
		}
		return s
	}
}
