package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"recipe-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 拒絕時間窗內完全相同的 POST 請求
type Deduplicator struct {
	mu       sync.Mutex
	window   time.Duration
	requests map[string]time.Time
	now      func() time.Time
}

// NewDeduplicator 建立去重器；window <= 0 時為 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		window:   window,
		requests: make(map[string]time.Time),
		now:      time.Now,
	}
}

// seen 記錄指紋並回傳是否在時間窗內重複
func (d *Deduplicator) seen(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, exists := d.requests[fingerprint]; exists && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now

	// 順手清理過期指紋
	if len(d.requests)%256 == 0 {
		for k, t := range d.requests {
			if now.Sub(t) > 10*d.window {
				delete(d.requests, k)
			}
		}
	}
	return false
}

// Deduplication 請求去重中間件
func Deduplication(window time.Duration) gin.HandlerFunc {
	return NewDeduplicator(window).Middleware()
}

// Middleware 轉為 gin 中間件
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost || c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
					Error: "Request body too large",
					Code:  common.ErrCodeBodyTooLarge,
				})
				return
			}
			common.LogError("Failed to read request body", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
				Error: "Failed to read request body",
				Code:  common.ErrCodeInvalidRequest,
			})
			return
		}
		// 恢復請求體
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// 生成請求指紋
		hash := sha256.Sum256(body)
		fingerprint := c.ClientIP() + ":" + c.Request.URL.Path + ":" + hex.EncodeToString(hash[:])

		if d.seen(fingerprint) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Error: "Request too frequent",
				Code:  common.ErrCodeTooManyRequests,
			})
			return
		}

		c.Next()
	}
}
