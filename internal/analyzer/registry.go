package analyzer

import (
	"fmt"

	"github.com/ivlev/montage/internal/errs"
)

// NewDetector creates a detector based on the specified variant.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	default:
		return nil, fmt.Errorf("%w: unknown detector variant %q", errs.ErrInvalidConfig, variant)
	}
}
