package source

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ivlev/montage/internal/system"
)

const pageFragment = "#page="

// Locator is a parsed asset source: a file path and, for documents, a
// 1-based page number.
type Locator struct {
	Path string
	Page int
}

// ParseLocator splits "deck.pdf#page=3" into path and page. Sources without
// a valid page fragment are returned whole with Page 0.
func ParseLocator(src string) Locator {
	i := strings.LastIndex(src, pageFragment)
	if i < 0 {
		return Locator{Path: src}
	}
	page, err := strconv.Atoi(src[i+len(pageFragment):])
	if err != nil || page < 1 {
		return Locator{Path: src}
	}
	return Locator{Path: src[:i], Page: page}
}

func (l Locator) String() string {
	if l.Page == 0 {
		return l.Path
	}
	return fmt.Sprintf("%s%s%d", l.Path, pageFragment, l.Page)
}

// IsDocument reports whether the path has a document extension.
func (l Locator) IsDocument() bool {
	return hasExt(l.Path, system.DocumentExtensions)
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
