package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// ScaleSteps is the fixed sequence of candidate scale factors for the
// ingest-time pyramid.
var ScaleSteps = []int{1, 2, 4, 8, 16}

// GenerateScales walks ScaleSteps in order and stops at the first factor
// whose product with longSide exceeds maxLongSide (inclusive bound). The
// walk truncates rather than filters, so the result never has gaps.
// Factor 1 is always included for any longSide <= maxLongSide.
func GenerateScales(longSide, maxLongSide int) []int {
	scales := make([]int, 0, len(ScaleSteps))
	for _, s := range ScaleSteps {
		if longSide*s > maxLongSide {
			break
		}
		scales = append(scales, s)
	}
	return scales
}

// Upscale returns a new image of exactly (w*scale, h*scale) pixels using
// nearest-neighbor resampling. Pixel replication keeps the output
// bit-for-bit reproducible, which higher-quality filters don't guarantee.
// The source image is never mutated.
func Upscale(img image.Image, scale int) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*scale, bounds.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
