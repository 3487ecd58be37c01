// Package pdf abstracts the page-rasterization library behind small
// interfaces so document extraction can be tested without a native PDF
// renderer.
package pdf

import (
	"github.com/docforge/extractd/internal/ocr"
)

// Document is an opened paged document.
type Document interface {
	// PageCount reports the number of pages.
	PageCount() int
	// RenderPage rasterizes the page at the given 1-based index with the
	// configured zoom factors and returns the pixel buffer.
	RenderPage(index int, zoomX, zoomY float64) (ocr.Image, error)
	// Close releases renderer resources.
	Close() error
}

// Opener parses a byte buffer into a paged document.
type Opener interface {
	Open(data []byte) (Document, error)
}
