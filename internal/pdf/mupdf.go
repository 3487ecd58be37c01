/**
 * MuPDF-backed rasterizer
 *
 * Opens PDF bytes with go-fitz and renders pages to RGB rasters. Zoom
 * factors follow the PDF convention of 72 DPI at zoom 1.0. MuPDF renders
 * with a single scale factor, so the horizontal zoom drives the DPI; a
 * differing vertical zoom is honored on a best-effort basis only and logged
 * once per process.
 */

package pdf

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/ocr"
)

const baseDPI = 72.0

// MuPDFOpener implements Opener on the MuPDF renderer.
type MuPDFOpener struct {
	logger   *zap.Logger
	warnOnce sync.Once
}

// NewMuPDFOpener returns the production document opener.
func NewMuPDFOpener(logger *zap.Logger) *MuPDFOpener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MuPDFOpener{logger: logger}
}

// Open parses the byte buffer as a PDF document.
func (o *MuPDFOpener) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &muPDFDocument{doc: doc, opener: o}, nil
}

// noteZoom flags anisotropic zoom requests, which MuPDF cannot satisfy. The
// configuration is static per deployment, so one warning is enough.
func (o *MuPDFOpener) noteZoom(zoomX, zoomY float64) {
	if zoomY == zoomX {
		return
	}
	o.warnOnce.Do(func() {
		o.logger.Warn("anisotropic zoom is not supported, horizontal zoom drives the render DPI",
			zap.Float64("zoom_x", zoomX),
			zap.Float64("zoom_y", zoomY),
		)
	})
}

type muPDFDocument struct {
	doc    *fitz.Document
	opener *MuPDFOpener
}

func (d *muPDFDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *muPDFDocument) RenderPage(index int, zoomX, zoomY float64) (ocr.Image, error) {
	if index < 1 || index > d.doc.NumPage() {
		return ocr.Image{}, fmt.Errorf("page index %d out of range [1,%d]", index, d.doc.NumPage())
	}
	if zoomX <= 0 {
		zoomX = 1
	}
	d.opener.noteZoom(zoomX, zoomY)

	img, err := d.doc.ImageDPI(index-1, baseDPI*zoomX)
	if err != nil {
		return ocr.Image{}, fmt.Errorf("render page %d: %w", index, err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	return ocr.FromRGBA(rgba), nil
}

func (d *muPDFDocument) Close() error {
	return d.doc.Close()
}
