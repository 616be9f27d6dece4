package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/index"
	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedEmbedder 以記憶體快取、Redis 與 singleflight 包裝 Embedder
//
// 鍵為文字的 SHA-256，快取中不保存原始查詢文字。
type CachedEmbedder struct {
	next    index.Embedder
	memory  *cache.Manager
	redis   *cache.Redis
	group   singleflight.Group
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewCachedEmbedder 建立快取 embedder；memory 與 redis 皆可為 nil
//
// timeout 限制共用的上游呼叫，<= 0 表示不另設期限。
func NewCachedEmbedder(next index.Embedder, memory *cache.Manager, redis *cache.Redis, timeout time.Duration, m *metrics.Metrics) *CachedEmbedder {
	return &CachedEmbedder{
		next:    next,
		memory:  memory,
		redis:   redis,
		timeout: timeout,
		metrics: m,
	}
}

// EmbedQuery 依序查記憶體、Redis，未命中才呼叫上游
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := Key(text)

	if c.memory != nil {
		if vec, ok := c.memory.Get(key); ok {
			c.metrics.ObserveCache("memory", true)
			common.LogCacheHit("memory")
			return vec, nil
		}
		c.metrics.ObserveCache("memory", false)
		common.LogCacheMiss("memory")
	}

	if c.redis != nil {
		vec, ok, err := c.redis.Get(ctx, key)
		if err != nil {
			common.LogWarn("Redis 快取讀取失敗", zap.Error(err))
		}
		c.metrics.ObserveCache("redis", ok)
		if ok {
			common.LogCacheHit("redis")
			c.memory.Set(key, vec)
			return vec, nil
		}
		common.LogCacheMiss("redis")
	}

	// 共用呼叫不綁定任何單一請求，請求取消只影響自己的等待
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), key, text)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		vec := res.Val.([]float32)
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
}

// fetch 呼叫上游並寫入兩層快取
func (c *CachedEmbedder) fetch(ctx context.Context, key, text string) ([]float32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	vec, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.memory.Set(key, vec)
	if err := c.redis.Set(ctx, key, vec); err != nil {
		common.LogWarn("Redis 快取寫入失敗", zap.Error(err))
	}
	return vec, nil
}

// Key 產生快取鍵
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
