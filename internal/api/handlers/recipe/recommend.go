package recipe

import (
	"context"
	"errors"
	"net/http"

	"recipe-recommender/internal/core/recommend"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recommender 食譜推薦
type Recommender interface {
	Recommend(ctx context.Context, raw string) ([]recommend.Recommendation, error)
}

// RecommendRequest 依食材推薦食譜
type RecommendRequest struct {
	Ingredients *string `json:"ingredients"`          // 逗號分隔的食材
	WithSteps   bool    `json:"with_steps,omitempty"` // 是否附上編號步驟
}

// Handler 食譜推薦處理器
type Handler struct {
	recommender Recommender
}

// NewHandler 建立處理器
func NewHandler(recommender Recommender) *Handler {
	return &Handler{recommender: recommender}
}

// HandleRecommend 依使用者食材回傳至多三筆食譜
func (h *Handler) HandleRecommend(c *gin.Context) {
	requestID := requestid.Get(c)

	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Ingredients == nil {
		common.LogWarn("請求格式無效",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Error: "Invalid request format",
			Code:  common.ErrCodeInvalidRequest,
		})
		return
	}

	recs, err := h.recommender.Recommend(c.Request.Context(), *req.Ingredients)
	if err != nil {
		common.LogError("食譜推薦失敗",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		_ = c.Error(err)

		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Error: "Request timeout",
				Code:  common.ErrCodeGatewayTimeout,
			})
			return
		}
		status, code := common.StatusOf(err)
		message := "Recipe recommendation failed"
		if errors.Is(err, common.ErrRetrievalService) {
			message = common.ErrRetrievalService.Message
		}
		c.JSON(status, common.ErrorResponse{Error: message, Code: code})
		return
	}

	if req.WithSteps {
		recs = recommend.WithSteps(recs)
	}

	common.LogDebug("食譜推薦成功",
		zap.String("request_id", requestID),
		zap.Int("results", len(recs)),
	)
	c.JSON(http.StatusOK, recs)
}
