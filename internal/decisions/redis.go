package decisions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"loan-approval/internal/common/config"
	apperrors "loan-approval/internal/common/errors"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
}

// RedisVerdictCache stores predicted labels keyed by model version and
// feature-vector fingerprint.
type RedisVerdictCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisVerdictCache(client redis.Cmdable, ttl time.Duration, prefix string) *RedisVerdictCache {
	return &RedisVerdictCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *RedisVerdictCache) Key(modelVersion, fingerprint string) string {
	return c.prefix + modelVersion + ":" + fingerprint
}

// Get returns the cached label. A miss is (0, false, nil).
func (c *RedisVerdictCache) Get(ctx context.Context, modelVersion, fingerprint string) (int, bool, error) {
	val, err := c.client.Get(ctx, c.Key(modelVersion, fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.NewCacheUnavailableError(err)
	}

	label, err := strconv.Atoi(val)
	if err != nil || (label != 0 && label != 1) {
		return 0, false, apperrors.NewCacheUnavailableError(fmt.Errorf("corrupt cache entry %q", val))
	}
	return label, true, nil
}

func (c *RedisVerdictCache) Set(ctx context.Context, modelVersion, fingerprint string, label int) error {
	if err := c.client.Set(ctx, c.Key(modelVersion, fingerprint), strconv.Itoa(label), c.ttl).Err(); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	return nil
}

func (c *RedisVerdictCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
