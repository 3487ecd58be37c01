package extract

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/docforge/extractd/internal/ocr"
)

// rotate returns img rotated clockwise by angle degrees (90, 180 or 270),
// expanding the canvas so no pixels are clipped. Other angles return the
// image unchanged.
func rotate(img ocr.Image, angle int) ocr.Image {
	w, h := float64(img.Width), float64(img.Height)

	var dstW, dstH int
	var srcToDst f64.Aff3
	switch angle {
	case 90:
		dstW, dstH = img.Height, img.Width
		srcToDst = f64.Aff3{0, -1, h, 1, 0, 0}
	case 180:
		dstW, dstH = img.Width, img.Height
		srcToDst = f64.Aff3{-1, 0, w, 0, -1, h}
	case 270:
		dstW, dstH = img.Height, img.Width
		srcToDst = f64.Aff3{0, 1, 0, -1, 0, w}
	default:
		return img
	}

	src := img.RGBA()
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.NearestNeighbor.Transform(dst, srcToDst, src, src.Bounds(), draw.Src, nil)
	return ocr.FromRGBA(dst)
}
