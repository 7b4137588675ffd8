package usecase

import "context"

// DerivativeRepository is the opaque key→bytes store holding every encoded
// derivative. Get returns (nil, nil) when the key doesn't exist; an error
// means the store itself failed.
type DerivativeRepository interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ResponseCacheRepository is the edge response cache keyed by request path.
// Both operations are best-effort.
type ResponseCacheRepository interface {
	GetResponse(ctx context.Context, key string) ([]byte, error)
	SetResponse(ctx context.Context, key string, data []byte) error
}
