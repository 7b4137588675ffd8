package usecase

import "context"

type DerivativesInfra interface {
	UploadDerivatives(ctx context.Context, req *UploadDerivativesReq) (*UploadDerivativesRes, error)
}

// ResponseCacheWriter schedules a response-cache population decoupled from
// the request that produced it. Enqueue never blocks and never fails the
// caller; write failures surface in logs only.
type ResponseCacheWriter interface {
	Enqueue(key string, data []byte)
}

type EventPublisher interface {
	PublishIngested(ctx context.Context, event *ImageIngestedEvent) error
}
