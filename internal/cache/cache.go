package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nurpe/amc-schedule/internal/config"
	"github.com/nurpe/amc-schedule/internal/model"
)

var ErrCacheMiss = errors.New("cache miss")

const defaultPrefix = "amc:result:"

// Connect opens a redis client and checks it answers.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// ResultCache keeps computed batches in redis, keyed by input fingerprint.
type ResultCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewResultCache(rdb redis.Cmdable, ttl time.Duration) *ResultCache {
	return &ResultCache{rdb: rdb, prefix: defaultPrefix, ttl: ttl}
}

func (c *ResultCache) key(fingerprint string) string {
	return c.prefix + fingerprint
}

func (c *ResultCache) Get(ctx context.Context, fingerprint string) (*model.BatchRecord, error) {
	raw, err := c.rdb.Get(ctx, c.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	record := &model.BatchRecord{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("decode cached batch: %w", err)
	}
	return record, nil
}

func (c *ResultCache) Set(ctx context.Context, record *model.BatchRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(record.Fingerprint), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *ResultCache) Delete(ctx context.Context, fingerprint string) error {
	if err := c.rdb.Del(ctx, c.key(fingerprint)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
