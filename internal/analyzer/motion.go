package analyzer

import (
	"image"
	"math"

	"github.com/ivlev/montage/internal/effects"
)

// centerTolerance is the focus offset, as a fraction of the image size,
// under which the camera zooms instead of panning.
const centerTolerance = 0.1

// Focus returns the area-weighted center of blocks, or the center of bounds
// when there are none.
func Focus(blocks []Block, bounds image.Rectangle) image.Point {
	var sx, sy, total float64
	for _, b := range blocks {
		a := b.Area()
		c := b.Rect.Min.Add(b.Rect.Size().Div(2))
		sx += float64(c.X) * a
		sy += float64(c.Y) * a
		total += a
	}
	if total == 0 {
		return bounds.Min.Add(bounds.Size().Div(2))
	}
	return image.Pt(int(math.Round(sx/total)), int(math.Round(sy/total)))
}

// Motion suggests a camera effect that drifts toward the focus of blocks:
// a pan along the dominant offset axis, or a zoom when the focus is central.
func Motion(blocks []Block, bounds image.Rectangle) effects.Kind {
	if bounds.Empty() {
		return effects.ZoomIn
	}
	f := Focus(blocks, bounds)
	c := bounds.Min.Add(bounds.Size().Div(2))
	dx := float64(f.X-c.X) / float64(bounds.Dx())
	dy := float64(f.Y-c.Y) / float64(bounds.Dy())

	switch {
	case math.Abs(dx) < centerTolerance && math.Abs(dy) < centerTolerance:
		return effects.ZoomIn
	case math.Abs(dx) >= math.Abs(dy) && dx > 0:
		return effects.PanRight
	case math.Abs(dx) >= math.Abs(dy):
		return effects.PanLeft
	case dy > 0:
		return effects.PanDown
	default:
		return effects.PanUp
	}
}

// MotionPicker runs a detector over a still image and suggests a motion.
type MotionPicker struct {
	Detector Detector
}

// NewMotionPicker creates a picker using the named detector variant.
func NewMotionPicker(variant string) (*MotionPicker, error) {
	d, err := NewDetector(variant)
	if err != nil {
		return nil, err
	}
	return &MotionPicker{Detector: d}, nil
}

// Pick detects regions in img and returns the suggested effect kind.
func (p *MotionPicker) Pick(img image.Image) (effects.Kind, error) {
	blocks, err := p.Detector.Detect(img)
	if err != nil {
		return "", err
	}
	return Motion(blocks, img.Bounds()), nil
}
