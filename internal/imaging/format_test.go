package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/png"
	"strings"
	"testing"

	"github.com/jiftechnify/upix-backend/pkg/e"
	"golang.org/x/image/bmp"
)

func TestFormatFromContentType(t *testing.T) {
	accepted := map[string]Format{
		"image/png":                FormatPNG,
		"image/webp":               FormatWebP,
		"image/bmp":                FormatBMP,
		"image/gif":                FormatGIF,
		"image/png; charset=utf-8": FormatPNG,
	}
	for ct, want := range accepted {
		got, err := FormatFromContentType(ct)
		if err != nil {
			t.Errorf("%s: unexpected rejection: %v", ct, err)
			continue
		}
		if got != want {
			t.Errorf("%s: got %s, want %s", ct, got, want)
		}
	}
}

func TestFormatFromContentType_Rejections(t *testing.T) {
	cases := []struct {
		ct      string
		wantMsg string
	}{
		{ct: "", wantMsg: "Missing Content-Type header"},
		{ct: "text/plain", wantMsg: "not for an image"},
		{ct: "application/json", wantMsg: "not for an image"},
		{ct: "image/jpeg", wantMsg: "Unsupported image format: jpg"},
		{ct: "image/tiff", wantMsg: "Unsupported image format"},
		{ct: "image/unknownsubtype", wantMsg: "not for an image"},
	}

	for _, tc := range cases {
		_, err := FormatFromContentType(tc.ct)
		var ve *e.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%q: got %v, want a ValidationError", tc.ct, err)
			continue
		}
		if !strings.Contains(ve.Msg, tc.wantMsg) {
			t.Errorf("%q: message %q doesn't contain %q", tc.ct, ve.Msg, tc.wantMsg)
		}
	}
}

func encodeAs(t *testing.T, img image.Image, f Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	default:
		t.Fatalf("no encoder for %s in tests", f)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", f, err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	src := newGradientImage(8, 8)

	for _, f := range []Format{FormatPNG, FormatBMP, FormatGIF} {
		img, err := Decode(encodeAs(t, src, f), f)
		if err != nil {
			t.Errorf("%s: decode failed: %v", f, err)
			continue
		}
		if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
			t.Errorf("%s: wrong dimensions %v", f, img.Bounds())
		}
	}
}

func TestDecode_PayloadMismatch(t *testing.T) {
	// Declared PNG, actual BMP: a client error, not a server one.
	data := encodeAs(t, newGradientImage(4, 4), FormatBMP)

	_, err := Decode(data, FormatPNG)
	var ve *e.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want a ValidationError", err)
	}
	if ve.Msg != "Failed to decode image" {
		t.Errorf("message = %q", ve.Msg)
	}
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), FormatGIF)
	var ve *e.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want a ValidationError", err)
	}
}
