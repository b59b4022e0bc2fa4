package effects

import (
	"fmt"

	"github.com/ivlev/montage/internal/errs"
)

// Easing names the curve that maps normalized time onto progress.
type Easing string

const (
	EaseLinear    Easing = "linear"
	EaseIn        Easing = "ease_in"
	EaseOut       Easing = "ease_out"
	EaseInOut     Easing = "ease_in_out"
	defaultEasing        = EaseLinear
)

func (e Easing) validate() error {
	switch e {
	case "", EaseLinear, EaseIn, EaseOut, EaseInOut:
		return nil
	}
	return fmt.Errorf("%w: unknown easing %q", errs.ErrInvalidEffect, e)
}

// apply maps t in [0,1] onto [0,1].
func (e Easing) apply(t float64) float64 {
	switch e {
	case EaseIn:
		return t * t * t
	case EaseOut:
		return 1 - pow(1-t, 3)
	case EaseInOut:
		return easeInOutCubic(t)
	default:
		return t
	}
}

// lerp performs linear interpolation between a and b.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies a smooth ease-in-out curve.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// pow calculates x^n.
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
