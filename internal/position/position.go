// Package position resolves layer placements (absolute, relative or anchored
// to a frame region) into pixel rectangles.
package position

import (
	"fmt"
	"math"
	"strings"

	"github.com/ivlev/montage/internal/errs"
)

// Kind selects how a Position is interpreted.
type Kind string

const (
	KindAbsolute Kind = "absolute"
	KindRelative Kind = "relative"
	KindRegion   Kind = "region"
)

// Size is a width/height pair in pixels.
type Size struct {
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Rect is a resolved pixel rectangle.
type Rect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Position describes where a layer goes. Exactly one variant is active,
// selected by Kind:
//   - absolute: X, Y, Width, Height in pixels
//   - relative: X, Y, Width, Height as fractions of the frame
//   - region:   Anchor plus Margin in pixels
//
// Zero Width/Height mean "use the content size".
type Position struct {
	Kind   Kind    `yaml:"kind"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
	Anchor string  `yaml:"anchor,omitempty"`
	Margin int     `yaml:"margin,omitempty"`
}

// Absolute places content at pixel coordinates.
func Absolute(x, y, w, h int) Position {
	return Position{Kind: KindAbsolute, X: float64(x), Y: float64(y), Width: float64(w), Height: float64(h)}
}

// Relative places content at fractions of the frame size.
func Relative(x, y, w, h float64) (Position, error) {
	p := Position{Kind: KindRelative, X: x, Y: y, Width: w, Height: h}
	return p, p.Validate()
}

// Region anchors content to one of the nine named frame regions.
func Region(anchor string, margin int) (Position, error) {
	p := Position{Kind: KindRegion, Anchor: anchor, Margin: margin}
	return p, p.Validate()
}

// Centered is the default placement for references that do not set one.
func Centered() Position {
	return Position{Kind: KindRegion, Anchor: "center"}
}

// IsZero reports whether no variant was chosen.
func (p Position) IsZero() bool {
	return p == Position{}
}

// Validate checks the fields of the active variant.
func (p Position) Validate() error {
	switch p.Kind {
	case KindAbsolute:
		if p.Width < 0 || p.Height < 0 {
			return fmt.Errorf("%w: negative size %.0fx%.0f", errs.ErrInvalidPosition, p.Width, p.Height)
		}
	case KindRelative:
		names := [...]string{"x", "y", "width", "height"}
		for i, v := range [...]float64{p.X, p.Y, p.Width, p.Height} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				return fmt.Errorf("%w: relative %s %.4f outside [0,1]", errs.ErrInvalidPosition, names[i], v)
			}
		}
	case KindRegion:
		if _, ok := lookupAnchor(p.Anchor); !ok {
			return fmt.Errorf("%w: unknown anchor %q", errs.ErrInvalidPosition, p.Anchor)
		}
		if p.Margin < 0 {
			return fmt.Errorf("%w: negative margin %d", errs.ErrInvalidPosition, p.Margin)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", errs.ErrInvalidPosition, p.Kind)
	}
	return nil
}

// Resolve converts p into a pixel rectangle for the given frame and content
// sizes. It has no side effects.
func Resolve(p Position, frame, content Size) (Rect, error) {
	if p.IsZero() {
		p = Centered()
	}
	if err := p.Validate(); err != nil {
		return Rect{}, err
	}

	switch p.Kind {
	case KindAbsolute:
		r := Rect{
			X: max(0, Round(p.X)),
			Y: max(0, Round(p.Y)),
			W: Round(p.Width),
			H: Round(p.Height),
		}
		return withContentSize(r, content), nil
	case KindRelative:
		r := Rect{
			X: Round(p.X * float64(frame.W)),
			Y: Round(p.Y * float64(frame.H)),
			W: Round(p.Width * float64(frame.W)),
			H: Round(p.Height * float64(frame.H)),
		}
		return withContentSize(r, content), nil
	default:
		a, _ := lookupAnchor(p.Anchor)
		return Rect{
			X: a.h.offset(frame.W, content.W, p.Margin),
			Y: a.v.offset(frame.H, content.H, p.Margin),
			W: content.W,
			H: content.H,
		}, nil
	}
}

func withContentSize(r Rect, content Size) Rect {
	if r.W <= 0 {
		r.W = max(0, content.W)
	}
	if r.H <= 0 {
		r.H = max(0, content.H)
	}
	return r
}

// Round rounds half away from zero to the nearest pixel.
func Round(v float64) int {
	return int(math.Round(v))
}

type align int

const (
	alignStart align = iota
	alignMiddle
	alignEnd
)

func (a align) offset(frame, content, margin int) int {
	switch a {
	case alignStart:
		return margin
	case alignMiddle:
		return Round(float64(frame-content) / 2)
	default:
		return frame - content - margin
	}
}

type anchor struct {
	h, v align
}

var anchors = map[string]anchor{
	"top-left":      {alignStart, alignStart},
	"top-center":    {alignMiddle, alignStart},
	"top-right":     {alignEnd, alignStart},
	"middle-left":   {alignStart, alignMiddle},
	"middle-center": {alignMiddle, alignMiddle},
	"center":        {alignMiddle, alignMiddle},
	"middle-right":  {alignEnd, alignMiddle},
	"bottom-left":   {alignStart, alignEnd},
	"bottom-center": {alignMiddle, alignEnd},
	"bottom-right":  {alignEnd, alignEnd},
}

func lookupAnchor(name string) (anchor, bool) {
	a, ok := anchors[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Anchors returns the accepted region names.
func Anchors() []string {
	return []string{
		"top-left", "top-center", "top-right",
		"middle-left", "center", "middle-right",
		"bottom-left", "bottom-center", "bottom-right",
	}
}
