// Package source turns asset locators into pixels: still images, PDF pages
// rendered with MuPDF and video frames extracted with ffmpeg.
package source

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// pointsPerInch is the unit of PDF page bounds.
const pointsPerInch = 72.0

// Document is an open PDF.
type Document struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
}

// OpenDocument opens the PDF at path.
func OpenDocument(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Document{doc: doc, path: path}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

// PageSize returns the pixel size of page index (0-based) at dpi.
func (d *Document) PageSize(index, dpi int) (int, int, error) {
	d.mu.Lock()
	rect, err := d.doc.Bound(index)
	d.mu.Unlock()
	if err != nil {
		return 0, 0, err
	}
	scale := float64(dpi) / pointsPerInch
	return int(float64(rect.Dx())*scale + 0.5), int(float64(rect.Dy())*scale + 0.5), nil
}

// RenderPage rasterizes page index (0-based). MuPDF documents are not safe
// for concurrent use, so each call opens its own handle.
func (d *Document) RenderPage(index, dpi int) (image.Image, error) {
	worker, err := fitz.New(d.path)
	if err != nil {
		return nil, err
	}
	defer worker.Close()
	return worker.ImageDPI(index, float64(dpi))
}

// Close releases the document.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}
