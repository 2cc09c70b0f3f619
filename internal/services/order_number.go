package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// OrderNumberGenerator hands out human-readable order numbers of the form
// PREFIX-YYYYMMDD-SUFFIX.
type OrderNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// RandomOrderNumbers uses the first eight hex characters of a random UUID as
// suffix. Collisions are possible but rare and are retried by the caller.
type RandomOrderNumbers struct {
	prefix string
	now    func() time.Time
}

func NewRandomOrderNumbers(prefix string) *RandomOrderNumbers {
	return &RandomOrderNumbers{prefix: prefix, now: time.Now}
}

func (g *RandomOrderNumbers) Next(ctx context.Context) (string, error) {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", g.prefix, g.now().UTC().Format("20060102"), suffix), nil
}

// RedisOrderNumbers draws a per-day sequence from Redis INCR, which is unique
// across processes. When Redis is unreachable it falls back to random suffixes.
type RedisOrderNumbers struct {
	rdb      redis.Cmdable
	prefix   string
	now      func() time.Time
	fallback *RandomOrderNumbers
	logger   *logrus.Entry
}

func NewRedisOrderNumbers(rdb redis.Cmdable, prefix string, logger *logrus.Entry) *RedisOrderNumbers {
	return &RedisOrderNumbers{
		rdb:      rdb,
		prefix:   prefix,
		now:      time.Now,
		fallback: NewRandomOrderNumbers(prefix),
		logger:   logger,
	}
}

func (g *RedisOrderNumbers) Next(ctx context.Context) (string, error) {
	day := g.now().UTC().Format("20060102")
	key := "orders:seq:" + day

	pipe := g.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		g.logger.WithError(err).Warn("Redis order sequence unavailable, using random suffix")
		return g.fallback.Next(ctx)
	}
	return fmt.Sprintf("%s-%s-%06d", g.prefix, day, incr.Val()), nil
}
