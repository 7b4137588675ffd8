package usecase

import "context"

type ImageUC interface {
	Ingest(ctx context.Context, req *IngestImageReq) ([]UploadedImage, error)
	Resolve(ctx context.Context, req *ResolveImageReq) (*ResolveImageRes, error)
}
