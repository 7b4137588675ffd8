package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jiftechnify/upix-backend/pkg/e"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

// ToHTTPResponse maps an internal error to a status and client message.
// This is the only place HTTP statuses are assigned; everything below the
// delivery layer stays HTTP-free. Server-side detail is never surfaced.
func ToHTTPResponse(err error) (int, string) {
	var ve *e.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, e.ErrTooLargeImage):
		return http.StatusRequestEntityTooLarge, "Too large image data"
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, e.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

// WriteError writes the error envelope: JSON {"message": ...} when a
// message is set, an empty body otherwise.
func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	if msg == "" {
		w.WriteHeader(code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// extractImageData pulls (raw bytes, declared content type) out of an
// upload request. Two transports are accepted: a raw body whose
// Content-Type is the image's own, and a multipart form with a single
// "file" field. Both converge on the same ingest pipeline.
func extractImageData(r *http.Request, maxBytes int) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return extractFromMultipart(r, maxBytes)
	}
	return extractFromRawBody(r, contentType, maxBytes)
}

func extractFromRawBody(r *http.Request, contentType string, maxBytes int) ([]byte, string, error) {
	// Read one byte past the cap so the validator can tell "at the limit"
	// from "over it".
	data, err := io.ReadAll(io.LimitReader(r.Body, int64(maxBytes)+1))
	if err != nil {
		return nil, "", e.Wrap("read request body", err)
	}

	return data, contentType, nil
}

func extractFromMultipart(r *http.Request, maxBytes int) ([]byte, string, error) {
	const maxMemory = 1 << 20

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, "", e.Validationf("Failed to parse form data")
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		return nil, "", e.Validationf("Missing 'file' field in form data")
	}
	fh := files[0]

	// Reject by the declared size before reading the file body at all.
	if fh.Size > int64(maxBytes) {
		return nil, "", e.ErrTooLargeImage
	}

	src, err := fh.Open()
	if err != nil {
		return nil, "", e.Wrap("open multipart file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, int64(maxBytes)+1))
	if err != nil {
		return nil, "", e.Wrap("read multipart file", err)
	}

	return data, fh.Header.Get("Content-Type"), nil
}
