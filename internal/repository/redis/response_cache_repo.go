package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/pkg/clients"
	"github.com/jiftechnify/upix-backend/pkg/e"
	"github.com/jiftechnify/upix-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// ResponseCacheRepo caches fully-encoded derivative responses in Redis,
// keyed by the request path.
type ResponseCacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewResponseCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *ResponseCacheRepo {
	return &ResponseCacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetResponse returns the cached response bytes for key, or (nil, nil) on a
// cache miss.
func (c *ResponseCacheRepo) GetResponse(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Client.Get(ctx, c.responseKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, nil // cache miss
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}

// SetResponse stores response bytes under key with the configured TTL.
func (c *ResponseCacheRepo) SetResponse(ctx context.Context, key string, data []byte) error {
	if err := c.client.Client.Set(ctx, c.responseKey(key), data, c.cfg.ResponseTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// responseKey возвращает Redis-ключ для закэшированного ответа.
func (c *ResponseCacheRepo) responseKey(key string) string {
	return fmt.Sprintf("resp:%s", key)
}
