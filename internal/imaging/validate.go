package imaging

import (
	"image"

	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/pkg/e"
)

// Validator enforces the upload policy before any derivative work happens.
// Limits come from configuration so tests can exercise alternates.
type Validator struct {
	cfg *cfg.ImageCfg
}

func NewValidator(cfg *cfg.ImageCfg) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateSize rejects payloads over the raw byte cap. Checked before
// decoding so oversized payloads are never decoded.
func (v *Validator) ValidateSize(data []byte) error {
	if len(data) > v.cfg.MaxBodyBytes {
		return e.ErrTooLargeImage
	}
	return nil
}

// ValidateDimensions applies the geometry policy to a decoded image.
// Checks run in a fixed order and the first violation wins: pixel count,
// long side, aspect ratio. Every violation is a client error carrying the
// offending and limit values.
func (v *Validator) ValidateDimensions(img image.Image) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w*h > v.cfg.MaxPixels {
		return e.Validationf("Image has too many pixels (%d > %d)", w*h, v.cfg.MaxPixels)
	}

	long, short := w, h
	if h > w {
		long, short = h, w
	}
	if long > v.cfg.MaxLongSide {
		return e.Validationf("Long side of image is too long (%d > %d)", long, v.cfg.MaxLongSide)
	}
	if float64(long)/float64(short) > v.cfg.MaxAspectRatio {
		return e.Validationf("Aspect ratio of image is out of range (%d : %d > %v : 1)", long, short, v.cfg.MaxAspectRatio)
	}

	return nil
}
