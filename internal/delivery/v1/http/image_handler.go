package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/internal/usecase"
	"github.com/jiftechnify/upix-backend/pkg/logger"
)

// cacheControl is the directive attached to every derivative response.
// Derivatives are content-addressed and never change, so a year is safe.
const cacheControl = "public, max-age=31536000"

type ImageHandler struct {
	imageUsecase usecase.ImageUC
	imageCfg     *cfg.ImageCfg
	logger       logger.Logger
}

func NewImageHandler(imageUsecase usecase.ImageUC, imageCfg *cfg.ImageCfg, logger logger.Logger) *ImageHandler {
	return &ImageHandler{imageUsecase: imageUsecase, imageCfg: imageCfg, logger: logger}
}

// liveness — проверка доступности сервиса.
func (h *ImageHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("upix API"))
}

// uploadImage ingests an image and responds with one record per stored
// derivative, ordered by ascending scale.
func (h *ImageHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := extractImageData(r, h.imageCfg.MaxBodyBytes)
	if err != nil {
		h.logger.Warnf("failed to extract image data: %v", err)
		WriteError(w, err)
		return
	}

	images, err := h.imageUsecase.Ingest(r.Context(), usecase.NewIngestImageReq(data, contentType))
	if err != nil {
		h.logger.Warnf("ingest failed: %v", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, images)
}

// getDerivative serves a derivative addressed by {hash}[_{scale}x].png,
// either from the response cache or computed on demand from the stored
// base image.
func (h *ImageHandler) getDerivative(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "name")

	res, err := h.imageUsecase.Resolve(r.Context(), usecase.NewResolveImageReq(path))
	if err != nil {
		h.logger.Warnf("resolve failed for %s: %v", path, err)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}
