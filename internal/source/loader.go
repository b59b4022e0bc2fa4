package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/singleflight"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/system"
)

const defaultDPI = 150

// Prober reads duration and dimensions of a media file.
type Prober func(ctx context.Context, path string) (system.Probe, error)

// Loader decodes asset pixels. Stills and PDF pages are cached for the
// lifetime of the loader; concurrent requests for the same frame share one
// decode.
type Loader struct {
	FFmpeg string
	DPI    int
	Probe  Prober
	Logger *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]image.Image
}

// NewLoader creates a loader calling the given ffmpeg and ffprobe binaries.
func NewLoader(ffmpeg, ffprobe string, logger *slog.Logger) *Loader {
	return &Loader{
		FFmpeg: ffmpeg,
		DPI:    defaultDPI,
		Probe: func(ctx context.Context, path string) (system.Probe, error) {
			return system.ProbeMedia(ctx, ffprobe, path)
		},
		Logger: logger,
		cache:  make(map[string]image.Image),
	}
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *Loader) dpi() int {
	if l.DPI <= 0 {
		return defaultDPI
	}
	return l.DPI
}

// Still returns the representative image of a visual asset: the image
// itself, its PDF page or the first video frame.
func (l *Loader) Still(ctx context.Context, a asset.Asset) (image.Image, error) {
	return l.Frame(ctx, a, 0)
}

// Frame returns the pixels of a at sourceTime. Only video assets depend on
// the time.
func (l *Loader) Frame(ctx context.Context, a asset.Asset, sourceTime float64) (image.Image, error) {
	switch a.Kind {
	case asset.KindImage:
		return l.cached(a.Source, func() (image.Image, error) {
			return l.decodeStill(a.Source)
		})
	case asset.KindVideo:
		// Millisecond keys let frames that map to the same source time share work.
		key := fmt.Sprintf("%s@%d", a.Source, int64(math.Round(sourceTime*1000)))
		v, err, _ := l.group.Do(key, func() (any, error) {
			return ExtractFrame(ctx, l.FFmpeg, a.Source, sourceTime)
		})
		if err != nil {
			return nil, err
		}
		return v.(image.Image), nil
	default:
		return nil, fmt.Errorf("%w: %s asset %q has no pixels", errs.ErrInvalidAsset, a.Kind, a.ID)
	}
}

func (l *Loader) cached(key string, load func() (image.Image, error)) (image.Image, error) {
	l.mu.RLock()
	img, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return img, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		img, err := load()
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.cache == nil {
			l.cache = make(map[string]image.Image)
		}
		l.cache[key] = img
		l.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

func (l *Loader) decodeStill(src string) (image.Image, error) {
	loc := ParseLocator(src)
	if !loc.IsDocument() {
		return DecodeImage(loc.Path)
	}

	doc, err := OpenDocument(loc.Path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	page := max(loc.Page, 1)
	if page > doc.PageCount() {
		return nil, fmt.Errorf("%w: %s has %d pages, page %d requested", errs.ErrInvalidAsset, loc.Path, doc.PageCount(), page)
	}
	l.logger().Debug("[>] rendering page", "path", loc.Path, "page", page, "dpi", l.dpi())
	return doc.RenderPage(page-1, l.dpi())
}

// Import describes the file at path as assets: one per page for documents,
// one otherwise. IDs derive from the file name.
func (l *Loader) Import(ctx context.Context, path string) ([]asset.Asset, error) {
	id := assetID(path)

	switch {
	case hasExt(path, system.DocumentExtensions):
		doc, err := OpenDocument(path)
		if err != nil {
			return nil, err
		}
		defer doc.Close()

		n := doc.PageCount()
		out := make([]asset.Asset, 0, n)
		for i := range n {
			w, h, err := doc.PageSize(i, l.dpi())
			if err != nil {
				return nil, fmt.Errorf("page %d of %s: %w", i+1, path, err)
			}
			out = append(out, asset.Asset{
				ID:     fmt.Sprintf("%s-p%d", id, i+1),
				Kind:   asset.KindImage,
				Source: Locator{Path: path, Page: i + 1}.String(),
				Width:  w,
				Height: h,
			})
		}
		return out, nil

	case hasExt(path, system.ImageExtensions):
		w, h, err := ImageSize(path)
		if err != nil {
			return nil, err
		}
		return []asset.Asset{{ID: id, Kind: asset.KindImage, Source: path, Width: w, Height: h}}, nil

	case hasExt(path, system.AudioExtensions), hasExt(path, system.VideoExtensions):
		p, err := l.Probe(ctx, path)
		if err != nil {
			return nil, err
		}
		a := asset.Asset{ID: id, Kind: asset.KindAudio, Source: path, Duration: p.Duration}
		if p.HasVideo && hasExt(path, system.VideoExtensions) {
			a.Kind, a.Width, a.Height = asset.KindVideo, p.Width, p.Height
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		return []asset.Asset{a}, nil
	}

	return nil, fmt.Errorf("%w: unsupported file %s", errs.ErrInvalidAsset, path)
}

// assetID turns "My Slides.pdf" into "my-slides".
func assetID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
