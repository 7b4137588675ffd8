package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// DerivativeRepo реализует хранилище производных изображений поверх MinIO.
type DerivativeRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewDerivativeRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *DerivativeRepo {
	return &DerivativeRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Put writes encoded derivative bytes under key. Overwriting an existing
// key is fine: keys are content-addressed, so concurrent writers always
// write identical bytes for a given key.
func (r *DerivativeRepo) Put(ctx context.Context, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)

	_, err := r.mc.PutObject(ctx, r.cfg.BucketName, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Get reads the object stored under key. A missing key is not an error:
// it returns (nil, nil) so callers can distinguish absence from store
// failure.
func (r *DerivativeRepo) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.mc.GetObject(ctx, r.cfg.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// GetObject is lazy: NoSuchKey only surfaces on first read.
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}
