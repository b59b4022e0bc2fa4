package renderer

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/ivlev/montage/internal/errs"
)

var namedColors = map[string]color.RGBA{
	"black":       {A: 255},
	"white":       {R: 255, G: 255, B: 255, A: 255},
	"red":         {R: 255, A: 255},
	"green":       {G: 128, A: 255},
	"blue":        {B: 255, A: 255},
	"yellow":      {R: 255, G: 255, A: 255},
	"gray":        {R: 128, G: 128, B: 128, A: 255},
	"transparent": {},
}

// ParseColor accepts "#RGB", "#RRGGBB", "#RRGGBBAA" and a few color names.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("%w: color %q", errs.ErrInvalidConfig, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: color %q", errs.ErrInvalidConfig, s)
	}
	// color.RGBA is alpha-premultiplied.
	a := uint32(v & 0xff)
	pre := func(c uint32) uint8 { return uint8(c * a / 255) }
	return color.RGBA{R: pre(uint32(v >> 24)), G: pre(uint32(v>>16) & 0xff), B: pre(uint32(v>>8) & 0xff), A: uint8(a)}, nil
}
