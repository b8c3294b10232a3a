package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/basket/internal/model"
)

const keyPrefix = "basket:compare:"

// Redis shares comparisons between server instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the server at url (redis://host:port/db) and checks
// it answers.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func key(listID int64) string {
	return keyPrefix + strconv.FormatInt(listID, 10)
}

func (r *Redis) Get(ctx context.Context, listID int64) (*model.PriceComparison, bool, error) {
	data, err := r.client.Get(ctx, key(listID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var c model.PriceComparison
	if err := json.Unmarshal(data, &c); err != nil {
		// A corrupt entry is a miss.
		r.client.Del(ctx, key(listID))
		return nil, false, nil
	}
	return &c, true, nil
}

func (r *Redis) Set(ctx context.Context, listID int64, c model.PriceComparison) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode comparison: %w", err)
	}
	if err := r.client.Set(ctx, key(listID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, listID int64) error {
	if err := r.client.Del(ctx, key(listID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
