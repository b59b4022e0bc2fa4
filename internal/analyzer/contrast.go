package analyzer

import (
	"image"
	"image/draw"
	"math"
)

// ContrastDetector finds regions bounded by strong edges using a Sobel
// gradient, dilation and connected components.
type ContrastDetector struct {
	MinBlockArea  int     // pixels²
	EdgeThreshold float64 // gradient magnitude
	DilateRadius  int
	DilatePasses  int
}

// NewContrastDetector creates a contrast-based detector with default settings.
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30.0,
		DilateRadius:  2,
		DilatePasses:  2,
	}
}

// Detect returns the regions whose bounding box covers at least MinBlockArea.
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	gray := grayscale(img)
	mask := edgeMask(gray, d.EdgeThreshold)
	for range d.DilatePasses {
		mask = mask.dilate(d.DilateRadius)
	}

	var blocks []Block
	for _, r := range mask.components() {
		if r.Dx()*r.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{Rect: r.Add(gray.Rect.Min), Confidence: 0.7})
	}
	return blocks, nil
}

func grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// bitmap is a binary image with origin at (0,0).
type bitmap struct {
	w, h int
	on   []bool
}

func newBitmap(w, h int) *bitmap {
	return &bitmap{w: w, h: h, on: make([]bool, w*h)}
}

func (m *bitmap) at(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.w && y < m.h && m.on[y*m.w+x]
}

func edgeMask(g *image.Gray, threshold float64) *bitmap {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	m := newBitmap(w, h)
	px := func(x, y int) float64 {
		return float64(g.Pix[y*g.Stride+x])
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			m.on[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return m
}

// dilate sets every pixel within a square of the given radius around a set
// pixel.
func (m *bitmap) dilate(radius int) *bitmap {
	out := newBitmap(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if !m.on[y*m.w+x] {
				continue
			}
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx >= 0 && ny >= 0 && nx < m.w && ny < m.h {
						out.on[ny*m.w+nx] = true
					}
				}
			}
		}
	}
	return out
}

// components returns the bounding boxes of 4-connected set regions.
func (m *bitmap) components() []image.Rectangle {
	seen := make([]bool, len(m.on))
	var rects []image.Rectangle
	var stack []image.Point

	for i, set := range m.on {
		if !set || seen[i] {
			continue
		}
		start := image.Pt(i%m.w, i/m.w)
		r := image.Rectangle{Min: start, Max: start.Add(image.Pt(1, 1))}
		seen[i] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})

			for _, n := range [...]image.Point{image.Pt(p.X+1, p.Y), image.Pt(p.X-1, p.Y), image.Pt(p.X, p.Y+1), image.Pt(p.X, p.Y-1)} {
				if m.at(n.X, n.Y) && !seen[n.Y*m.w+n.X] {
					seen[n.Y*m.w+n.X] = true
					stack = append(stack, n)
				}
			}
		}
		rects = append(rects, r)
	}
	return rects
}
