package calorie

import (
	"context"
	"errors"
	"net/http"

	"recipe-recommender/internal/core/nutrition"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Analyzer 營養分析
type Analyzer interface {
	Analyze(ctx context.Context, lines []string) (*nutrition.Result, error)
}

// CalorieRequest 營養分析請求
type CalorieRequest struct {
	Ingredients []string `json:"ingredients"`
}

// Handler 營養分析處理器
type Handler struct {
	analyzer Analyzer
}

// NewHandler 建立處理器
func NewHandler(analyzer Analyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

// HandleCalorie 回傳食材清單的熱量、蛋白質、脂肪與碳水
func (h *Handler) HandleCalorie(c *gin.Context) {
	requestID := requestid.Get(c)

	var req CalorieRequest
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

	result, err := h.analyzer.Analyze(c.Request.Context(), req.Ingredients)
	if err != nil {
		_ = c.Error(err)

		var analysisErr *nutrition.AnalysisError
		if !errors.As(err, &analysisErr) || analysisErr.Payload == nil {
			common.LogError("營養分析失敗", zap.String("request_id", requestID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, nutrition.ErrorPayload{Error: "Internal Server Error: " + err.Error()})
			return
		}

		status, _ := common.StatusOf(analysisErr.Kind)
		common.LogWarn("營養分析失敗",
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.Error(err),
		)
		c.JSON(status, analysisErr.Payload)
		return
	}

	c.JSON(http.StatusOK, result)
}
