package middleware

import (
	"fmt"
	"net/http"

	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BodySizeLimit 限制請求體大小；maxBytes <= 0 時不限制
//
// 宣告的 Content-Length 超過上限直接回 413，其餘交給 MaxBytesReader 在讀取時截斷。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	details := fmt.Sprintf("request body must not exceed %d bytes", maxBytes)

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			common.LogWarn("請求體過大",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_bytes", maxBytes),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
			)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
				Error:   "Request body too large",
				Code:    common.ErrCodeBodyTooLarge,
				Details: details,
			})
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
