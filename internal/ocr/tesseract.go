/**
 * Tesseract-backed OCR engine
 *
 * Production Engine implementation using the gosseract client. Word-level
 * boxes come from GetBoundingBoxes(RIL_WORD); Tesseract reports confidence
 * in percent, normalized here to [0,1].
 *
 * Oversized rasters are downscaled before recognition so detection cost
 * stays bounded; box coordinates are mapped back to the original raster.
 */

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
	xdraw "golang.org/x/image/draw"
)

// TesseractConfig holds Tesseract engine configuration.
type TesseractConfig struct {
	// Language is the trained-data code, e.g. "eng" or "deu".
	Language string
	// DetLimitSideLen caps the longer image side fed to recognition. Larger
	// rasters are downscaled to fit. Zero disables the cap.
	DetLimitSideLen int
	// DetUnclipRatio expands each word box around its center, compensating
	// for tight crops on glyph ascenders and descenders. Values <= 1 leave
	// boxes untouched.
	DetUnclipRatio float64
}

// TesseractEngine implements Engine on a local Tesseract installation.
type TesseractEngine struct {
	cfg TesseractConfig
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine(cfg TesseractConfig) (*TesseractEngine, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &TesseractEngine{cfg: cfg}, nil
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize performs OCR on a single page raster.
func (e *TesseractEngine) Recognize(ctx context.Context, img Image) ([]Box, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	input, scale := e.fitToLimit(img)

	encoded, err := input.EncodePNG()
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.cfg.Language); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImageFromBytes(encoded); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	words, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	// No detections is a valid result, not an error.
	if len(words) == 0 {
		return nil, nil
	}

	boxes := make([]Box, 0, len(words))
	for _, w := range words {
		if w.Word == "" {
			continue
		}
		minX, minY := float64(w.Box.Min.X)/scale, float64(w.Box.Min.Y)/scale
		maxX, maxY := float64(w.Box.Max.X)/scale, float64(w.Box.Max.Y)/scale
		minX, minY, maxX, maxY = e.unclip(minX, minY, maxX, maxY, img)
		boxes = append(boxes, Box{
			Quad: [4]Point{
				{X: minX, Y: minY},
				{X: maxX, Y: minY},
				{X: maxX, Y: maxY},
				{X: minX, Y: maxY},
			},
			Text:       w.Word,
			Confidence: w.Confidence / 100.0,
		})
	}

	return boxes, nil
}

// fitToLimit downscales the raster when its longer side exceeds the
// configured limit. Returns the image to recognize and the applied scale
// factor (1.0 when untouched).
func (e *TesseractEngine) fitToLimit(img Image) (Image, float64) {
	limit := e.cfg.DetLimitSideLen
	longer := img.Width
	if img.Height > longer {
		longer = img.Height
	}
	if limit <= 0 || longer <= limit {
		return img, 1.0
	}

	scale := float64(limit) / float64(longer)
	dstW := int(float64(img.Width) * scale)
	dstH := int(float64(img.Height) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	src := img.RGBA()
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	return FromRGBA(dst), scale
}

// unclip grows a box around its center by the configured ratio, clamped to
// the raster bounds.
func (e *TesseractEngine) unclip(minX, minY, maxX, maxY float64, img Image) (float64, float64, float64, float64) {
	ratio := e.cfg.DetUnclipRatio
	if ratio <= 1 {
		return minX, minY, maxX, maxY
	}

	padX := (maxX - minX) * (ratio - 1) / 2
	padY := (maxY - minY) * (ratio - 1) / 2

	minX -= padX
	maxX += padX
	minY -= padY
	maxY += padY

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if w := float64(img.Width); maxX > w {
		maxX = w
	}
	if h := float64(img.Height); maxY > h {
		maxY = h
	}
	return minX, minY, maxX, maxY
}
