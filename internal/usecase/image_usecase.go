package usecase

import (
	"context"
	"time"

	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/internal/domain"
	"github.com/jiftechnify/upix-backend/internal/imaging"
	"github.com/jiftechnify/upix-backend/pkg/e"
	"github.com/jiftechnify/upix-backend/pkg/logger"
)

// OutputExt is the single extension derivatives are stored and served under.
const OutputExt = "png"

// ImageUseCase реализует бизнес-логику загрузки и выдачи изображений.
type ImageUseCase struct {
	derivativeRepo DerivativeRepository
	cacheRepo      ResponseCacheRepository
	cacheWriter    ResponseCacheWriter
	imagesInfra    DerivativesInfra
	events         EventPublisher // may be nil, events are optional
	validator      *imaging.Validator
	imageCfg       *cfg.ImageCfg
	logger         logger.Logger
}

func NewImageUC(
	derivativeRepo DerivativeRepository,
	cacheRepo ResponseCacheRepository,
	cacheWriter ResponseCacheWriter,
	imagesInfra DerivativesInfra,
	events EventPublisher,
	validator *imaging.Validator,
	imageCfg *cfg.ImageCfg,
	logger logger.Logger,
) *ImageUseCase {
	return &ImageUseCase{
		derivativeRepo: derivativeRepo,
		cacheRepo:      cacheRepo,
		cacheWriter:    cacheWriter,
		imagesInfra:    imagesInfra,
		events:         events,
		validator:      validator,
		imageCfg:       imageCfg,
		logger:         logger,
	}
}

// Ingest validates an uploaded image, fingerprints it, and persists the
// upscale pyramid. Returns one record per stored derivative, ordered by
// ascending scale. Re-uploading byte-identical content overwrites the same
// keys with the same bytes, so the operation is idempotent.
func (u *ImageUseCase) Ingest(ctx context.Context, req *IngestImageReq) ([]UploadedImage, error) {
	const op = "ImageUseCase.Ingest"

	format, err := imaging.FormatFromContentType(req.ContentType)
	if err != nil {
		return nil, err
	}

	if err := u.validator.ValidateSize(req.Data); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(req.Data, format)
	if err != nil {
		return nil, err
	}

	if err := u.validator.ValidateDimensions(img); err != nil {
		return nil, err
	}

	hash := domain.Fingerprint(req.Data)

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	long := w
	if h > w {
		long = h
	}
	scales := imaging.GenerateScales(long, u.imageCfg.MaxLongSide)

	res, err := u.imagesInfra.UploadDerivatives(ctx, NewUploadDerivativesReq(hash, img, scales))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	u.publishIngested(ctx, hash, scales, w, h)

	return res.Images, nil
}

// Resolve serves a derivative for a request path: response cache first, then
// the canonical base image upscaled on demand. The cache population after a
// miss is handed off to the background writer and never blocks the response.
func (u *ImageUseCase) Resolve(ctx context.Context, req *ResolveImageReq) (*ResolveImageRes, error) {
	const op = "ImageUseCase.Resolve"

	// Cache lookup is best-effort: a failing cache must not fail the request.
	cached, err := u.cacheRepo.GetResponse(ctx, req.Path)
	if err != nil {
		u.logger.Warnf("response cache lookup failed, treating as miss: %v", e.Wrap(op, err))
	}
	if cached != nil {
		u.logger.Debugf("cache hit: %s", req.Path)
		return NewResolveImageRes(cached, true), nil
	}

	parts := domain.ParseRequestPath(req.Path)
	if parts == nil {
		u.logger.Infof("path doesn't match the derivative pattern: %s", req.Path)
		return nil, e.ErrNotFound
	}
	// The path is an opaque, possibly attacker-controlled key; an unexpected
	// extension is indistinguishable from a missing image.
	if parts.Ext != OutputExt {
		u.logger.Infof("unsupported extension: %s", parts.Ext)
		return nil, e.ErrNotFound
	}

	// Always fetch the scale-1 base and upscale from it, regardless of which
	// derivatives were pre-generated at ingest time.
	baseData, err := u.derivativeRepo.Get(ctx, domain.DerivativeKey(parts.Hash, 1, OutputExt))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if baseData == nil {
		u.logger.Infof("image not found: %s", parts.Hash)
		return nil, e.ErrNotFound
	}

	base, err := imaging.DecodePNG(baseData)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	img := base
	if parts.Scale != 1 {
		img = imaging.Upscale(base, parts.Scale)
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	u.cacheWriter.Enqueue(req.Path, data)

	return NewResolveImageRes(data, false), nil
}

// publishIngested emits an ingest event when a producer is configured.
// Event delivery is fire-and-forget; failures are logged only.
func (u *ImageUseCase) publishIngested(ctx context.Context, hash string, scales []int, w, h int) {
	const op = "ImageUseCase.publishIngested"

	if u.events == nil {
		return
	}

	event := &ImageIngestedEvent{
		Hash:       hash,
		Scales:     scales,
		Width:      w,
		Height:     h,
		IngestedAt: time.Now().UTC(),
	}
	if err := u.events.PublishIngested(ctx, event); err != nil {
		u.logger.Warnf("failed to publish ingest event: %v", e.Wrap(op, err))
	}
}
