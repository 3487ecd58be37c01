/**
 * OCR types and engine contract
 *
 * The OCR engine is a black box behind the Engine interface: one raster
 * image in, a list of detected text boxes out. An empty box list is a
 * legitimate "no detections" outcome; an error means the engine itself
 * failed. Callers must preserve that distinction.
 */

package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
)

// Point is an (x, y) pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is one detected text region. Quad lists the corners of the bounding
// quadrilateral in clockwise order starting at the top-left. Boxes come back
// in whatever order the engine returns them; reading order is the engine's
// responsibility.
type Box struct {
	Quad       [4]Point `json:"quad"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
}

// Image is a decoded 3-channel raster buffer. Pix holds RGB triplets in
// row-major order with a stride of 3*Width bytes.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// NewImage allocates a zeroed raster of the given dimensions.
func NewImage(width, height int) Image {
	return Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, 3*width*height),
	}
}

// FromRGBA converts a standard RGBA image, dropping the alpha channel.
func FromRGBA(src *image.RGBA) Image {
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[(y-b.Min.Y)*src.Stride : (y-b.Min.Y)*src.Stride+4*b.Dx()]
		for x := 0; x < b.Dx(); x++ {
			img.Pix[i] = row[4*x]
			img.Pix[i+1] = row[4*x+1]
			img.Pix[i+2] = row[4*x+2]
			i += 3
		}
	}
	return img
}

// RGBA converts the raster back to a standard RGBA image with opaque alpha.
func (img Image) RGBA() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	i := 0
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			dst.SetRGBA(x, y, color.RGBA{
				R: img.Pix[i],
				G: img.Pix[i+1],
				B: img.Pix[i+2],
				A: 0xff,
			})
			i += 3
		}
	}
	return dst
}

// EncodePNG serializes the raster for engines that consume encoded images.
func (img Image) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.RGBA()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Engine is the OCR provider contract.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string
	// Recognize runs OCR on a single page raster. A nil/empty slice with a
	// nil error means the engine saw no text.
	Recognize(ctx context.Context, img Image) ([]Box, error)
}
