package imaging

import (
	"bytes"
	"image"
	"image/gif"
	"image/png"
	"mime"
	"strings"

	"github.com/jiftechnify/upix-backend/pkg/e"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// Format identifies an ingest image codec.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatBMP  Format = "bmp"
	FormatGIF  Format = "gif"
)

// knownExts maps image MIME subtypes we can name in error messages but do
// not accept at ingest.
var knownExts = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/tiff": "tif",
	"image/avif": "avif",
}

// FormatFromContentType resolves a declared Content-Type into an accepted
// ingest format. Rejections are client errors: not an image at all, or an
// image format outside the accepted set.
func FormatFromContentType(contentType string) (Format, error) {
	if contentType == "" {
		return "", e.Validationf("Missing Content-Type header")
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", e.Validationf("Content-Type is not for an image")
	}

	switch mediaType {
	case "image/png":
		return FormatPNG, nil
	case "image/webp":
		return FormatWebP, nil
	case "image/bmp", "image/x-bmp":
		return FormatBMP, nil
	case "image/gif":
		return FormatGIF, nil
	}

	if ext, ok := knownExts[mediaType]; ok {
		return "", e.Validationf("Unsupported image format: %s", ext)
	}
	return "", e.Validationf("Content-Type is not for an image")
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Decode decodes data as the declared format. A payload that doesn't match
// the declared format is a client error, not a server one.
func Decode(data []byte, f Format) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch f {
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	case FormatGIF:
		img, err = gif.Decode(r)
	default:
		return nil, e.Validationf("Unsupported image format: %s", f)
	}
	if err != nil {
		return nil, e.Validationf("Failed to decode image")
	}

	return img, nil
}

// DecodePNG decodes stored derivative bytes. The store only ever contains
// PNGs this system wrote, so a failure here is an internal error.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap("decode stored png", err)
	}
	return img, nil
}

// EncodePNG encodes an image into the single supported output format.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, e.Wrap("encode png", err)
	}
	return buf.Bytes(), nil
}
