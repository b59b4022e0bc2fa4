package effects

import (
	"fmt"
	"math"
	"strings"

	"github.com/ivlev/montage/internal/errs"
)

// Kind is one member of the closed effect set.
type Kind string

const (
	PanLeft   Kind = "pan_left"
	PanRight  Kind = "pan_right"
	PanUp     Kind = "pan_up"
	PanDown   Kind = "pan_down"
	PanCenter Kind = "pan_center"
	ZoomIn    Kind = "zoom_in"
	ZoomOut   Kind = "zoom_out"
	FadeIn    Kind = "fade_in"
	FadeOut   Kind = "fade_out"
)

const (
	minZoom           = 0.1
	maxZoom           = 2.0
	defaultZoomFactor = 1.1
)

// Effect is a time-parameterized transform local to its asset reference.
// Start and End are seconds from the reference start.
type Effect struct {
	Kind       Kind    `yaml:"kind"`
	Start      float64 `yaml:"start"`
	End        float64 `yaml:"end"`
	StartZoom  float64 `yaml:"start_zoom,omitempty"`  // zoom_in, zoom_out
	EndZoom    float64 `yaml:"end_zoom,omitempty"`    // zoom_in, zoom_out
	ZoomFactor float64 `yaml:"zoom_factor,omitempty"` // pan_*
	Easing     Easing  `yaml:"easing,omitempty"`
}

// New builds an effect of the named kind with the default parameters of that
// kind over the window [start, end).
func New(name string, start, end float64) (Effect, error) {
	e := Effect{Kind: Kind(strings.ToLower(strings.TrimSpace(name))), Start: start, End: end}
	switch e.Kind {
	case ZoomIn:
		e.StartZoom, e.EndZoom = 1.0, 1.1
	case ZoomOut:
		e.StartZoom, e.EndZoom = 1.5, 1.4
	case PanLeft, PanRight, PanUp, PanDown, PanCenter:
		e.ZoomFactor = defaultZoomFactor
	case FadeIn, FadeOut:
	default:
		return Effect{}, fmt.Errorf("%w: unknown effect type %q", errs.ErrInvalidEffect, name)
	}
	return e, e.Validate()
}

// Kinds lists the closed set of effect kinds.
func Kinds() []Kind {
	return []Kind{PanLeft, PanRight, PanUp, PanDown, PanCenter, ZoomIn, ZoomOut, FadeIn, FadeOut}
}

// Validate checks the window and kind-specific parameters.
func (e Effect) Validate() error {
	if !finite(e.Start) || !finite(e.End) || e.Start >= e.End {
		return fmt.Errorf("%w: %s start %.3f >= end %.3f", errs.ErrInvalidEffectWindow, e.Kind, e.Start, e.End)
	}
	if err := e.Easing.validate(); err != nil {
		return err
	}

	switch e.Kind {
	case ZoomIn, ZoomOut:
		for _, z := range []float64{e.StartZoom, e.EndZoom} {
			if !finite(z) || z < minZoom || z > maxZoom {
				return fmt.Errorf("%w: %s zoom %.3f outside [%.1f, %.1f]", errs.ErrInvalidEffect, e.Kind, z, minZoom, maxZoom)
			}
		}
		if e.Kind == ZoomIn && e.StartZoom >= e.EndZoom {
			return fmt.Errorf("%w: zoom_in needs start_zoom < end_zoom", errs.ErrInvalidEffect)
		}
		if e.Kind == ZoomOut && e.StartZoom <= e.EndZoom {
			return fmt.Errorf("%w: zoom_out needs start_zoom > end_zoom", errs.ErrInvalidEffect)
		}
	case PanLeft, PanRight, PanUp, PanDown, PanCenter:
		if !finite(e.ZoomFactor) || e.ZoomFactor <= 0 {
			return fmt.Errorf("%w: %s zoom_factor must be positive", errs.ErrInvalidEffect, e.Kind)
		}
	case FadeIn, FadeOut:
	default:
		return fmt.Errorf("%w: unknown effect type %q", errs.ErrInvalidEffect, e.Kind)
	}
	return nil
}

// ClampTo intersects the effect window with [0, duration]. A window that
// starts before zero or has nothing left inside the reference is rejected.
func (e Effect) ClampTo(duration float64) (Effect, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	if e.Start < 0 {
		return e, fmt.Errorf("%w: %s starts at %.3f before its reference", errs.ErrInvalidEffectWindow, e.Kind, e.Start)
	}
	if e.Start >= duration {
		return e, fmt.Errorf("%w: %s starts at %.3f after its reference ends (%.3f)", errs.ErrInvalidEffectWindow, e.Kind, e.Start, duration)
	}
	if e.End > duration {
		e.End = duration
	}
	return e, nil
}

// Progress returns the eased normalized time for local, and false when local
// lies outside the window.
func (e Effect) Progress(local float64) (float64, bool) {
	if local < e.Start || local > e.End {
		return 0, false
	}
	t := clamp01((local - e.Start) / (e.End - e.Start))
	easing := e.Easing
	if easing == "" {
		easing = defaultEasing
	}
	return easing.apply(t), true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
