package renderer

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/compose"
	"github.com/ivlev/montage/internal/position"
)

type solidFrames struct {
	c color.RGBA
}

func (s solidFrames) Frame(context.Context, asset.Asset, float64) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = s.c.R, s.c.G, s.c.B, s.c.A
	}
	return img, nil
}

func newRegistry(t *testing.T) *asset.Registry {
	t.Helper()
	reg := asset.NewRegistry()
	for _, a := range []asset.Asset{
		{ID: "red", Kind: asset.KindImage, Source: "red.png", Width: 10, Height: 10},
		{ID: "sub", Kind: asset.KindSubtitle, Text: "Hello world"},
	} {
		if err := reg.Register(a); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	return reg
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{R: 255, A: 255}, false},
		{"#0f0", color.RGBA{G: 255, A: 255}, false},
		{"white", color.RGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"#FFFFFF80", color.RGBA{R: 128, G: 128, B: 128, A: 128}, false},
		{"#12345", color.RGBA{}, true},
		{"mauve-ish", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFitWithin(t *testing.T) {
	frame := position.Size{W: 720, H: 1280}
	tests := []struct {
		in, want position.Size
	}{
		{position.Size{W: 1440, H: 810}, position.Size{W: 720, H: 405}},
		{position.Size{W: 256, H: 256}, position.Size{W: 256, H: 256}},
		{position.Size{}, frame},
	}
	for _, tt := range tests {
		if got := fitWithin(tt.in, frame); got != tt.want {
			t.Errorf("fitWithin(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestRasterizeLayers(t *testing.T) {
	r, err := New(newRegistry(t), solidFrames{c: color.RGBA{R: 255, A: 255}}, Options{
		Frame:      position.Size{W: 100, H: 50},
		Background: "#000000",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, 100, 50))
	fi := compose.FrameInstruction{Layers: []compose.Layer{
		{RefID: "a", AssetID: "red", Kind: asset.KindImage, Rect: position.Rect{X: 10, Y: 10, W: 20, H: 20}, Scale: 1, Opacity: 1},
		{RefID: "b", AssetID: "red", Kind: asset.KindImage, Rect: position.Rect{X: 60, Y: 10, W: 20, H: 20}, Scale: 1, Opacity: 0.5},
		{RefID: "c", AssetID: "red", Kind: asset.KindImage, Rect: position.Rect{X: 0, Y: 40, W: 5, H: 5}, Scale: 1, Opacity: 0},
	}}
	if err := r.Rasterize(context.Background(), dst, fi); err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}

	if got := dst.RGBAAt(20, 20); got.R != 255 || got.A != 255 {
		t.Errorf("Opaque layer: expected red, got %v", got)
	}
	if got := dst.RGBAAt(70, 20); got.R < 120 || got.R > 135 {
		t.Errorf("Half-transparent layer: expected R≈128, got %v", got)
	}
	if got := dst.RGBAAt(2, 42); got.R != 0 {
		t.Errorf("Invisible layer was drawn: %v", got)
	}
	if got := dst.RGBAAt(50, 45); got != (color.RGBA{A: 255}) {
		t.Errorf("Background: expected black, got %v", got)
	}
}

func TestRasterizeUnknownAsset(t *testing.T) {
	r, _ := New(newRegistry(t), solidFrames{}, Options{Frame: position.Size{W: 10, H: 10}})
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	fi := compose.FrameInstruction{Layers: []compose.Layer{{RefID: "x", AssetID: "ghost", Rect: position.Rect{W: 5, H: 5}, Opacity: 1}}}
	if err := r.Rasterize(context.Background(), dst, fi); err == nil {
		t.Error("Expected an error for an unknown asset")
	}
}

func TestTextRender(t *testing.T) {
	tr := NewTextRenderer(asset.TextStyle{FontSize: 32, Color: "#FFFF00", StrokeColor: "#000000", StrokeWidth: 2}, 1000, nil)
	a := asset.Asset{ID: "sub", Kind: asset.KindSubtitle, Text: "Hello world"}

	img, err := tr.Render(a, nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	size := tr.Measure(a, nil)
	if img.Bounds().Dx() != size.W || img.Bounds().Dy() != size.H {
		t.Errorf("Measure %v disagrees with rendered bounds %v", size, img.Bounds())
	}

	yellow := false
	for i := 0; i < len(img.Pix) && !yellow; i += 4 {
		yellow = img.Pix[i] == 255 && img.Pix[i+1] == 255 && img.Pix[i+2] == 0
	}
	if !yellow {
		t.Error("Expected fill-colored pixels in the rendered text")
	}

	again, _ := tr.Render(a, nil)
	if again != img {
		t.Error("Expected the cached image on the second render")
	}
}

func TestTextWraps(t *testing.T) {
	tr := NewTextRenderer(asset.TextStyle{FontSize: 32}, 1000, nil)
	a := asset.Asset{ID: "t", Kind: asset.KindText, Text: "a fairly long line that needs wrapping"}

	wide := tr.Measure(a, nil)
	narrow := tr.Measure(a, &asset.TextStyle{MaxWidth: 200})
	if narrow.H <= wide.H {
		t.Errorf("Expected wrapping to add lines: wide %v, narrow %v", wide, narrow)
	}
	if narrow.W > 200 {
		t.Errorf("Wrapped text is wider than 200: %v", narrow)
	}
}

func TestEffectiveStyle(t *testing.T) {
	tr := NewTextRenderer(asset.TextStyle{FontSize: 40, Color: "white", StrokeWidth: 1}, 1000, nil)
	a := asset.Asset{Kind: asset.KindSubtitle, Text: "x", Style: asset.TextStyle{FontSize: 50, Font: "bold"}}

	got := tr.Effective(a, &asset.TextStyle{Color: "#FF0000"})
	want := asset.TextStyle{Font: "bold", FontSize: 50, Color: "#FF0000", StrokeWidth: 1, MaxWidth: 900}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSizer(t *testing.T) {
	r, _ := New(newRegistry(t), solidFrames{}, Options{Frame: position.Size{W: 5, H: 5}})
	sizer := r.Sizer()

	if got := sizer(asset.Asset{Kind: asset.KindImage, Width: 10, Height: 10}, nil); got != (position.Size{W: 5, H: 5}) {
		t.Errorf("Expected the image shrunk to 5x5, got %v", got)
	}
	if got := sizer(asset.Asset{Kind: asset.KindSubtitle, Text: "hi"}, nil); got.W <= 0 || got.H <= 0 {
		t.Errorf("Expected a measured subtitle size, got %v", got)
	}
}
