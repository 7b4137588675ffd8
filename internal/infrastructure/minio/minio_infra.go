package minio

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/internal/domain"
	"github.com/jiftechnify/upix-backend/internal/imaging"
	"github.com/jiftechnify/upix-backend/internal/usecase"
	"github.com/jiftechnify/upix-backend/pkg/e"
	"github.com/jiftechnify/upix-backend/pkg/logger"
)

// MinioInfrastructure управляет параллельной загрузкой пирамиды изображений в MinIO.
type MinioInfrastructure struct {
	derivativeRepo usecase.DerivativeRepository
	logger         logger.Logger
	uploadLimit    int
}

func NewMinioInfrastructure(derivativeRepo usecase.DerivativeRepository, cfg *cfg.MinIOCfg, logger logger.Logger) *MinioInfrastructure {
	return &MinioInfrastructure{
		derivativeRepo: derivativeRepo,
		logger:         logger,
		uploadLimit:    cfg.UploadLimit,
	}
}

// UploadDerivatives encodes and stores every derivative of the pyramid
// concurrently, bounded by a semaphore. The first failure cancels the
// remaining uploads and fails the call as a whole; derivatives already
// written stay in the store — they are content-addressed, valid on their
// own, and cheap to regenerate, so there is nothing to roll back.
//
// Results keep their scale-to-slot association by index, not by completion
// order, so the response is always ordered by ascending scale.
func (m *MinioInfrastructure) UploadDerivatives(ctx context.Context, req *usecase.UploadDerivativesReq) (*usecase.UploadDerivativesRes, error) {
	const op = "MinioInfrastructure.UploadDerivatives"

	// Отмена остальных загрузок при первой ошибке
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]usecase.UploadedImage, len(req.Scales))
	errCh := make(chan error, len(req.Scales))
	sem := make(chan struct{}, m.uploadLimit)

	var wg sync.WaitGroup
	for i, scale := range req.Scales {
		wg.Add(1)
		go func(i, scale int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}

			uploaded, err := m.uploadOne(ctx, req.Hash, req.Base, scale)
			if err != nil {
				errCh <- fmt.Errorf("upload %dx derivative of %s failed: %w", scale, req.Hash, err)
				cancel()
				return
			}

			results[i] = *uploaded
		}(i, scale)
	}

	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, e.Wrap(op, err)
	}

	return usecase.NewUploadDerivativesRes(results), nil
}

// uploadOne encodes one derivative and writes it under its content-addressed
// key. Scale 1 stores the base image unmodified.
func (m *MinioInfrastructure) uploadOne(ctx context.Context, hash string, base image.Image, scale int) (*usecase.UploadedImage, error) {
	img := base
	if scale != 1 {
		img = imaging.Upscale(base, scale)
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	key := domain.DerivativeKey(hash, scale, usecase.OutputExt)
	if err := m.derivativeRepo.Put(ctx, key, data, imaging.FormatPNG.ContentType()); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	m.logger.Debugf("uploaded %dx derivative (name: %s)", scale, key)

	uploaded := usecase.NewUploadedImage(key, scale, bounds.Dx(), bounds.Dy())
	return &uploaded, nil
}
