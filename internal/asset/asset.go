package asset

import (
	"fmt"
	"math"
	"strings"

	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/position"
)

// Kind is the media kind of an asset.
type Kind string

const (
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindText     Kind = "text"
	KindSubtitle Kind = "subtitle"
)

// TimeBound reports whether assets of this kind have an intrinsic duration
// that references may not exceed.
func (k Kind) TimeBound() bool {
	return k == KindAudio || k == KindVideo
}

// Visual reports whether the kind produces a layer in frame instructions.
func (k Kind) Visual() bool {
	return k != KindAudio
}

// TextStyle holds rendering parameters for text and subtitle assets.
type TextStyle struct {
	Font        string  `yaml:"font,omitempty"`
	FontSize    float64 `yaml:"font_size,omitempty"`
	Color       string  `yaml:"color,omitempty"`
	StrokeColor string  `yaml:"stroke_color,omitempty"`
	StrokeWidth int     `yaml:"stroke_width,omitempty"`
	MaxWidth    int     `yaml:"max_width,omitempty"` // wrap width in pixels, 0 = frame width
}

// Asset is an immutable description of one piece of media.
type Asset struct {
	ID       string    `yaml:"id"`
	Kind     Kind      `yaml:"kind"`
	Source   string    `yaml:"source,omitempty"`
	Duration float64   `yaml:"duration,omitempty"` // seconds, audio and video only
	Width    int       `yaml:"width,omitempty"`
	Height   int       `yaml:"height,omitempty"`
	Text     string    `yaml:"text,omitempty"`
	Style    TextStyle `yaml:"style,omitempty"`
}

// Size returns the intrinsic dimensions, zero when unknown.
func (a Asset) Size() position.Size {
	return position.Size{W: a.Width, H: a.Height}
}

// Validate checks the kind-specific requirements.
func (a Asset) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: empty id", errs.ErrInvalidAsset)
	}
	switch a.Kind {
	case KindImage, KindVideo, KindAudio:
		if strings.TrimSpace(a.Source) == "" {
			return fmt.Errorf("%w: %s asset %q has no source", errs.ErrInvalidAsset, a.Kind, a.ID)
		}
	case KindText, KindSubtitle:
		if strings.TrimSpace(a.Text) == "" {
			return fmt.Errorf("%w: %s asset %q has no text", errs.ErrInvalidAsset, a.Kind, a.ID)
		}
	default:
		return fmt.Errorf("%w: asset %q has unknown kind %q", errs.ErrInvalidAsset, a.ID, a.Kind)
	}
	if a.Kind.TimeBound() && a.Duration <= 0 {
		return fmt.Errorf("%w: %s asset %q needs a positive duration", errs.ErrInvalidAsset, a.Kind, a.ID)
	}
	if math.IsNaN(a.Duration) || math.IsInf(a.Duration, 0) {
		return fmt.Errorf("%w: asset %q has duration %v", errs.ErrInvalidAsset, a.ID, a.Duration)
	}
	if a.Duration < 0 || a.Width < 0 || a.Height < 0 {
		return fmt.Errorf("%w: asset %q has negative duration or dimensions", errs.ErrInvalidAsset, a.ID)
	}
	return nil
}
