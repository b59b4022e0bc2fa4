package effects

import (
	"github.com/ivlev/montage/internal/position"
)

// Transform is the per-frame result of an effect stack.
type Transform struct {
	Rect    position.Rect `yaml:"rect"`
	Scale   float64       `yaml:"scale"`
	Opacity float64       `yaml:"opacity"`
}

// frect keeps sub-pixel precision while the stack is applied.
type frect struct {
	x, y, w, h float64
}

func (r frect) scaleAboutCenter(s float64) frect {
	cx, cy := r.x+r.w/2, r.y+r.h/2
	w, h := r.w*s, r.h*s
	return frect{x: cx - w/2, y: cy - h/2, w: w, h: h}
}

func (r frect) round() position.Rect {
	return position.Rect{
		X: position.Round(r.x),
		Y: position.Round(r.y),
		W: position.Round(r.w),
		H: position.Round(r.h),
	}
}

// Apply runs the stack over base at the given local time. Effects apply in
// order, so swapping two entries may change the result.
func Apply(stack []Effect, local float64, base position.Rect) (Transform, error) {
	r := frect{x: float64(base.X), y: float64(base.Y), w: float64(base.W), h: float64(base.H)}
	scale, opacity := 1.0, 1.0

	for _, e := range stack {
		if err := e.Validate(); err != nil {
			return Transform{}, err
		}
		t, active := e.Progress(local)
		if !active {
			continue
		}

		switch e.Kind {
		case ZoomIn, ZoomOut:
			z := lerp(e.StartZoom, e.EndZoom, t)
			r = r.scaleAboutCenter(z)
			scale *= z
		case PanLeft, PanRight, PanUp, PanDown, PanCenter:
			before := r
			r = r.scaleAboutCenter(e.ZoomFactor)
			scale *= e.ZoomFactor
			dx, dy := panOffset(e.Kind, r.w-before.w, r.h-before.h, t)
			r.x += dx
			r.y += dy
		case FadeIn:
			opacity *= t
		case FadeOut:
			opacity *= 1 - t
		}
	}

	return Transform{Rect: r.round(), Scale: scale, Opacity: opacity}, nil
}

// panOffset moves the enlarged layer across its excess size so that one edge
// stays flush with the original rectangle at each end of the window.
func panOffset(kind Kind, excessW, excessH, t float64) (float64, float64) {
	switch kind {
	case PanRight:
		return excessW * (0.5 - t), 0
	case PanLeft:
		return excessW * (t - 0.5), 0
	case PanDown:
		return 0, excessH * (0.5 - t)
	case PanUp:
		return 0, excessH * (t - 0.5)
	default: // center
		return excessW * (0.5 - t), excessH * (t - 0.5)
	}
}
