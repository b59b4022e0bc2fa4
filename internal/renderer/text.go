package renderer

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/position"
)

const (
	defaultFontSize = 48.0
	fontDPI         = 72.0
	wrapRatio       = 0.9 // default wrap width as a fraction of the frame
)

// builtinFonts are selected by name; any other Font value is a file path.
var builtinFonts = map[string][]byte{
	"":        goregular.TTF,
	"regular": goregular.TTF,
	"bold":    gobold.TTF,
}

type faceKey struct {
	font string
	size float64
}

type textKey struct {
	text  string
	style asset.TextStyle
}

// TextRenderer rasterizes text and subtitle assets. Rendered images are
// cached by text and effective style.
type TextRenderer struct {
	defaults   asset.TextStyle
	frameWidth int
	logger     *slog.Logger

	// opentype faces are not safe for concurrent use.
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
	cache map[textKey]*image.RGBA
}

// NewTextRenderer creates a renderer filling unset style fields from
// defaults and wrapping to a share of frameWidth.
func NewTextRenderer(defaults asset.TextStyle, frameWidth int, logger *slog.Logger) *TextRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextRenderer{
		defaults:   defaults,
		frameWidth: frameWidth,
		logger:     logger,
		fonts:      make(map[string]*opentype.Font),
		faces:      make(map[faceKey]font.Face),
		cache:      make(map[textKey]*image.RGBA),
	}
}

// Effective merges the asset style and a per-reference override over the
// defaults. Later non-zero fields win.
func (r *TextRenderer) Effective(a asset.Asset, override *asset.TextStyle) asset.TextStyle {
	s := r.defaults
	layers := []asset.TextStyle{a.Style}
	if override != nil {
		layers = append(layers, *override)
	}
	for _, l := range layers {
		if l.Font != "" {
			s.Font = l.Font
		}
		if l.FontSize > 0 {
			s.FontSize = l.FontSize
		}
		if l.Color != "" {
			s.Color = l.Color
		}
		if l.StrokeColor != "" {
			s.StrokeColor = l.StrokeColor
		}
		if l.StrokeWidth > 0 {
			s.StrokeWidth = l.StrokeWidth
		}
		if l.MaxWidth > 0 {
			s.MaxWidth = l.MaxWidth
		}
	}
	if s.FontSize <= 0 {
		s.FontSize = defaultFontSize
	}
	if s.MaxWidth <= 0 {
		s.MaxWidth = int(float64(r.frameWidth) * wrapRatio)
	}
	if s.Color == "" {
		s.Color = "#FFFFFF"
	}
	return s
}

// Measure returns the size Render would produce.
func (r *TextRenderer) Measure(a asset.Asset, override *asset.TextStyle) position.Size {
	style := r.Effective(a, override)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, w, h := r.layout(a.Text, style)
	return position.Size{W: w, H: h}
}

// Render returns the text of a drawn on a transparent background.
func (r *TextRenderer) Render(a asset.Asset, override *asset.TextStyle) (*image.RGBA, error) {
	style := r.Effective(a, override)
	key := textKey{text: a.Text, style: style}

	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.cache[key]; ok {
		return img, nil
	}

	fill, err := ParseColor(style.Color)
	if err != nil {
		return nil, fmt.Errorf("text %q: %w", a.ID, err)
	}
	var stroke color.RGBA
	if style.StrokeWidth > 0 && style.StrokeColor != "" {
		if stroke, err = ParseColor(style.StrokeColor); err != nil {
			return nil, fmt.Errorf("text %q: %w", a.ID, err)
		}
	}

	face := r.face(style)
	lines, w, h := r.layout(a.Text, style)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	m := face.Metrics()
	sw := style.StrokeWidth

	d := &font.Drawer{Dst: img, Face: face}
	for i, line := range lines {
		lw := font.MeasureString(face, line).Ceil()
		x := (w - lw) / 2
		y := sw + m.Ascent.Ceil() + i*m.Height.Ceil()

		if stroke.A > 0 {
			d.Src = image.NewUniform(stroke)
			for dy := -sw; dy <= sw; dy++ {
				for dx := -sw; dx <= sw; dx++ {
					if dx*dx+dy*dy > sw*sw || (dx == 0 && dy == 0) {
						continue
					}
					d.Dot = fixed.P(x+dx, y+dy)
					d.DrawString(line)
				}
			}
		}
		d.Src = image.NewUniform(fill)
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}

	r.cache[key] = img
	return img, nil
}

// layout wraps text to the style width and returns the lines and the image
// size they need. Callers hold r.mu.
func (r *TextRenderer) layout(text string, style asset.TextStyle) ([]string, int, int) {
	face := r.face(style)
	lines := wrap(face, text, style.MaxWidth-2*style.StrokeWidth)

	w := 0
	for _, line := range lines {
		w = max(w, font.MeasureString(face, line).Ceil())
	}
	m := face.Metrics()
	h := (len(lines)-1)*m.Height.Ceil() + m.Ascent.Ceil() + m.Descent.Ceil()
	return lines, w + 2*style.StrokeWidth, h + 2*style.StrokeWidth
}

// wrap breaks text into lines no wider than width, keeping explicit line
// breaks. A single word wider than width gets a line of its own.
func wrap(face font.Face, text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if width > 0 && font.MeasureString(face, candidate).Ceil() > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

// face returns a cached face for the style. Unknown fonts fall back to the
// regular built-in face. Callers hold r.mu.
func (r *TextRenderer) face(style asset.TextStyle) font.Face {
	key := faceKey{font: style.Font, size: style.FontSize}
	if f, ok := r.faces[key]; ok {
		return f
	}

	f, err := r.loadFont(style.Font)
	if err != nil {
		r.logger.Warn("[!] font unavailable, using built-in", "font", style.Font, "error", err)
		f, _ = r.loadFont("")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: style.FontSize, DPI: fontDPI, Hinting: font.HintingFull})
	if err != nil {
		r.logger.Warn("[!] font face failed, using built-in", "font", style.Font, "error", err)
		f, _ = r.loadFont("")
		face, _ = opentype.NewFace(f, &opentype.FaceOptions{Size: defaultFontSize, DPI: fontDPI, Hinting: font.HintingFull})
	}
	r.faces[key] = face
	return face
}

func (r *TextRenderer) loadFont(name string) (*opentype.Font, error) {
	if f, ok := r.fonts[name]; ok {
		return f, nil
	}
	data, ok := builtinFonts[strings.ToLower(name)]
	if !ok {
		var err error
		if data, err = os.ReadFile(name); err != nil {
			return nil, err
		}
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	r.fonts[name] = f
	return f, nil
}
