package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recipe-recommender/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// keyPrefix Redis 鍵前綴
const keyPrefix = "recipe:embedding:"

// Redis 向量的 Redis 二級快取
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis 建立 Redis 快取並測試連線；停用時回傳 nil
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisWithClient(client, cfg.TTL), nil
}

// NewRedisWithClient 使用既有 client 建立快取
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Get 取得向量；未命中回傳 (nil, false, nil)
func (r *Redis) Get(ctx context.Context, key string) ([]float32, bool, error) {
	if r == nil {
		return nil, false, nil
	}

	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	return vec, true, nil
}

// Set 寫入向量
func (r *Redis) Set(ctx context.Context, key string, vec []float32) error {
	if r == nil {
		return nil
	}

	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close 關閉連線
func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}
