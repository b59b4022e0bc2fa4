package position

import (
	"errors"
	"testing"

	"github.com/ivlev/montage/internal/errs"
)

var fullHD = Size{W: 1920, H: 1080}

func TestResolveRelativeCenter(t *testing.T) {
	p, err := Relative(0.5, 0.5, 0, 0)
	if err != nil {
		t.Fatalf("Relative failed: %v", err)
	}

	r, err := Resolve(p, fullHD, Size{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.X != 960 || r.Y != 540 {
		t.Errorf("Expected (960, 540), got (%d, %d)", r.X, r.Y)
	}
}

func TestResolveRelativeRoundsHalfAwayFromZero(t *testing.T) {
	// 0.25 * 1922 = 480.5 -> 481
	p, _ := Relative(0.25, 0, 0.5, 0.5)
	r, err := Resolve(p, Size{W: 1922, H: 1081}, Size{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.X != 481 {
		t.Errorf("Expected x=481, got %d", r.X)
	}
	if r.W != 961 || r.H != 541 {
		t.Errorf("Expected 961x541, got %dx%d", r.W, r.H)
	}
}

func TestResolveAbsoluteClampsNegative(t *testing.T) {
	r, err := Resolve(Absolute(-20, 35, 0, 0), fullHD, Size{W: 300, H: 200})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := Rect{X: 0, Y: 35, W: 300, H: 200}
	if r != want {
		t.Errorf("Expected %+v, got %+v", want, r)
	}
}

func TestResolveRegionAnchors(t *testing.T) {
	content := Size{W: 200, H: 100}
	tests := []struct {
		anchor string
		want   Rect
	}{
		{"top-left", Rect{X: 10, Y: 10, W: 200, H: 100}},
		{"top-center", Rect{X: 860, Y: 10, W: 200, H: 100}},
		{"top-right", Rect{X: 1710, Y: 10, W: 200, H: 100}},
		{"middle-left", Rect{X: 10, Y: 490, W: 200, H: 100}},
		{"center", Rect{X: 860, Y: 490, W: 200, H: 100}},
		{"middle-center", Rect{X: 860, Y: 490, W: 200, H: 100}},
		{"middle-right", Rect{X: 1710, Y: 490, W: 200, H: 100}},
		{"bottom-left", Rect{X: 10, Y: 970, W: 200, H: 100}},
		{"bottom-center", Rect{X: 860, Y: 970, W: 200, H: 100}},
		{"bottom-right", Rect{X: 1710, Y: 970, W: 200, H: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			p, err := Region(tt.anchor, 10)
			if err != nil {
				t.Fatalf("Region failed: %v", err)
			}
			r, err := Resolve(p, fullHD, content)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if r != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, r)
			}
		})
	}
}

func TestResolveUnknownAnchor(t *testing.T) {
	p := Position{Kind: KindRegion, Anchor: "upper-middle"}
	_, err := Resolve(p, fullHD, Size{})
	if !errors.Is(err, errs.ErrInvalidPosition) {
		t.Fatalf("Expected ErrInvalidPosition, got %v", err)
	}
	if !errors.Is(err, errs.ErrStructural) {
		t.Errorf("Expected structural category, got %v", err)
	}
}

func TestRelativeRejectsOutOfRange(t *testing.T) {
	if _, err := Relative(1.2, 0, 0, 0); !errors.Is(err, errs.ErrInvalidPosition) {
		t.Errorf("Expected ErrInvalidPosition, got %v", err)
	}
}

func TestResolveDefaultsToCenter(t *testing.T) {
	r, err := Resolve(Position{}, Size{W: 100, H: 100}, Size{W: 20, H: 10})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.X != 40 || r.Y != 45 {
		t.Errorf("Expected centered (40, 45), got (%d, %d)", r.X, r.Y)
	}
}

func TestResolveDeterministic(t *testing.T) {
	p, _ := Region("bottom-right", 24)
	first, _ := Resolve(p, fullHD, Size{W: 333, H: 77})
	for i := 0; i < 10; i++ {
		again, _ := Resolve(p, fullHD, Size{W: 333, H: 77})
		if again != first {
			t.Fatalf("Resolve not deterministic: %+v vs %+v", first, again)
		}
	}
}
