// Package analyzer finds regions of visual interest in still images and
// turns them into a camera motion suggestion.
package analyzer

import "image"

// Block is a detected region of interest.
type Block struct {
	Rect       image.Rectangle
	Confidence float64 // 0.0-1.0
}

// Area is the pixel area of the block, weighted by confidence.
func (b Block) Area() float64 {
	return float64(b.Rect.Dx()*b.Rect.Dy()) * b.Confidence
}

// Detector is the interface for image analysis strategies.
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}
