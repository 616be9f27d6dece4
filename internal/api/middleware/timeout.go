package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Timeout 為請求設定逾時；處理完仍逾時且尚未回應時回傳 504
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Error: "Request timeout",
				Code:  common.ErrCodeRequestTimeout,
			})
		}
	}
}
