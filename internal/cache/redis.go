package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/muzz-match/internal/config"
	"github.com/redis/go-redis/v9"
)

// LikeCountTTL is refreshed on every read and write of a like counter.
const LikeCountTTL = time.Hour

// likeGenerationTTL outlives any single count computation by far.
const likeGenerationTTL = 24 * time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForLikeCount generates Redis key for a user's like count
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// KeyForLikeGeneration is the counter bumped by every invalidation of
// userID's like count.
func (c *RedisCache) KeyForLikeGeneration(userID uint64) string {
	return fmt.Sprintf("likes:gen:%d", userID)
}

// LikeCountGeneration returns the current invalidation generation for
// userID. Read it before computing a count and hand it to SetLikeCount.
func (c *RedisCache) LikeCountGeneration(ctx context.Context, userID uint64) (int64, error) {
	gen, err := c.Client.Get(ctx, c.KeyForLikeGeneration(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetLikeCount stores count with a fresh TTL unless the count was
// invalidated after gen was read. stored is false when the write was skipped.
func (c *RedisCache) SetLikeCount(ctx context.Context, userID uint64, count, gen int64) (stored bool, err error) {
	genKey := c.KeyForLikeGeneration(userID)
	err = c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.KeyForLikeCount(userID), count, LikeCountTTL)
			return nil
		})
		stored = err == nil
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// generation moved between WATCH and EXEC
		return false, nil
	}
	return stored, err
}

// GetLikeCount returns the cached count. ok is false on a cache miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (count int64, ok bool, err error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	count, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	// refresh TTL since this user is active
	_ = c.Client.Expire(ctx, key, LikeCountTTL).Err()
	return count, true, nil
}

// InvalidateLikeCount drops the cached count and bumps the generation so a
// count computed before this call is never written back.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, userID uint64) error {
	genKey := c.KeyForLikeGeneration(userID)
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, likeGenerationTTL)
		p.Del(ctx, c.KeyForLikeCount(userID))
		return nil
	})
	return err
}
